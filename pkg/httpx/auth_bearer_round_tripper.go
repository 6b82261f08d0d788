package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrTokenRejected is returned when the server answers 401 to a token that
// cannot be refreshed.
var ErrTokenRejected = errors.New("bearer token rejected")

type authenticator interface {
	Authenticate(context.Context) error
	BearerToken() string
}

type AuthBearerRoundTripper struct {
	next          http.RoundTripper
	authenticator authenticator
}

func NewAuthBearerRoundTripper(
	next http.RoundTripper,
	authenticator authenticator,
) AuthBearerRoundTripper {
	return AuthBearerRoundTripper{
		next:          next,
		authenticator: authenticator,
	}
}

// StaticToken is an API key issued out of band. It is never refreshed.
type StaticToken string

func (StaticToken) Authenticate(context.Context) error {
	return ErrTokenRejected
}

func (t StaticToken) BearerToken() string {
	return string(t)
}

func (rt AuthBearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.authenticator.BearerToken() == "" {
		if err := rt.authenticator.Authenticate(req.Context()); err != nil {
			return nil, fmt.Errorf("authenticator.Authenticate: %w", err)
		}
	}

	resp, err := rt.next.RoundTrip(rt.withAuthorization(req))
	if err != nil {
		return nil, fmt.Errorf("next.RoundTrip: %w", err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	resp.Body.Close()

	if err = rt.authenticator.Authenticate(req.Context()); err != nil {
		return nil, fmt.Errorf("authenticator.Authenticate: %w", err)
	}

	if req.GetBody != nil {
		if req.Body, err = req.GetBody(); err != nil {
			return nil, fmt.Errorf("req.GetBody: %w", err)
		}
	}

	return rt.next.RoundTrip(rt.withAuthorization(req)) //nolint:wrapcheck
}

// withAuthorization clones req: a RoundTripper must not modify the caller's request.
func (rt AuthBearerRoundTripper) withAuthorization(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+rt.authenticator.BearerToken())

	return clone
}
