package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tg"
)

const (
	requestTimeout = 15 * time.Second
	peerTTL        = time.Hour
)

// TransferGift передаёт уникальный подарок slug пользователю username.
func (c *Client) TransferGift(ctx context.Context, slug, username string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	peer, err := c.resolveUser(ctx, username)
	if err != nil {
		return err
	}

	_, err = c.api.PaymentsTransferStarGift(ctx, &tg.PaymentsTransferStarGiftRequest{
		Stargift: &tg.InputSavedStarGiftSlug{Slug: slug},
		ToID:     peer,
	})
	if err != nil {
		return fmt.Errorf("transfer star gift %s: %w", slug, err)
	}

	logger(ctx).Info("gift transferred", "slug", slug, "username", username, "account", c.Phone)

	return nil
}

// resolveUser кэширует access hash: он привязан к аккаунту, поэтому кэш у каждого клиента свой.
func (c *Client) resolveUser(ctx context.Context, username string) (tg.InputPeerClass, error) {
	username = strings.TrimPrefix(username, "@")

	if cached, ok := c.peers.Get(username); ok {
		if peer, ok := cached.(*tg.InputPeerUser); ok {
			return peer, nil
		}
	}

	res, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, fmt.Errorf("resolve username %s: %w", username, err)
	}

	peerUser, ok := res.Peer.(*tg.PeerUser)
	if !ok {
		return nil, fmt.Errorf("username %s is not a user", username)
	}

	for _, raw := range res.Users {
		u, ok := raw.(*tg.User)
		if !ok || u.ID != peerUser.UserID {
			continue
		}

		peer := u.AsInputPeer()
		c.peers.Set(username, peer, peerTTL)

		return peer, nil
	}

	return nil, fmt.Errorf("user %s missing in resolve result", username)
}
