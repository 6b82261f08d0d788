package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/patrickmn/go-cache"

	"gift_market/internal/domain/value"
)

const (
	subscriptionTTL     = 5 * time.Minute
	subscriptionCleanup = 10 * time.Minute
)

// Chats — куда отправляются служебные уведомления.
type Chats struct {
	Admins        []int64
	Owners        []int64
	DepositChatID int64
	// DepositThreadID — тема в форуме депозитного чата, 0 — без темы.
	DepositThreadID int
}

type TelegramBot struct {
	bot   *telego.Bot
	chats Chats

	// members кэширует только положительные проверки подписки.
	members *cache.Cache
}

func NewTelegramBot(bot *telego.Bot, chats Chats) *TelegramBot {
	return &TelegramBot{
		bot:     bot,
		chats:   chats,
		members: cache.New(subscriptionTTL, subscriptionCleanup),
	}
}

// Notify рассылает текст всем чатам аудитории. Ошибки по отдельным чатам
// не прерывают рассылку.
func (b *TelegramBot) Notify(ctx context.Context, audience value.Audience, text string) error {
	var errs []error

	switch audience {
	case value.AudienceAdmins:
		for _, id := range b.chats.Admins {
			errs = append(errs, b.SendText(ctx, id, 0, text))
		}
	case value.AudienceOwners:
		for _, id := range b.chats.Owners {
			errs = append(errs, b.SendText(ctx, id, 0, text))
		}
	case value.AudienceDeposits:
		if b.chats.DepositChatID != 0 {
			errs = append(errs, b.SendText(ctx, b.chats.DepositChatID, b.chats.DepositThreadID, text))
		}
	default:
		return fmt.Errorf("unknown audience %q", audience)
	}

	return errors.Join(errs...)
}

func (b *TelegramBot) NotifyUser(ctx context.Context, userID int64, text string) error {
	return b.SendText(ctx, userID, 0, text)
}

// NotifyChannel публикует сообщение в публичном канале.
func (b *TelegramBot) NotifyChannel(ctx context.Context, channel, text string) error {
	msg := tu.Message(tu.Username("@"+channel), text).WithParseMode(telego.ModeHTML)

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message to @%s: %w", channel, err)
	}

	return nil
}

func (b *TelegramBot) SendText(ctx context.Context, chatID int64, threadID int, text string) error {
	msg := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
	if threadID != 0 {
		msg = msg.WithMessageThreadID(threadID)
	}

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}

	return nil
}

// IsSubscribed проверяет, что пользователь состоит в публичном канале.
func (b *TelegramBot) IsSubscribed(ctx context.Context, channel string, userID int64) (bool, error) {
	key := channel + ":" + strconv.FormatInt(userID, 10)
	if _, ok := b.members.Get(key); ok {
		return true, nil
	}

	member, err := b.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.Username("@" + channel),
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}

	ok := isMember(member)
	if ok {
		b.members.SetDefault(key, struct{}{})
	}

	return ok, nil
}

func isMember(member telego.ChatMember) bool {
	switch m := member.(type) {
	case *telego.ChatMemberOwner, *telego.ChatMemberAdministrator, *telego.ChatMemberMember:
		return true
	case *telego.ChatMemberRestricted:
		return m.IsMember
	default:
		return false
	}
}
