// Package identity talks to the hosted login provider.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/workos/workos-go/v6/pkg/usermanagement"

	"surveyhub-backend/shared/auth"
)

var ErrInvalidCode = errors.New("invalid authorization code")

// Provider runs the authorization code flow.
type Provider interface {
	AuthorizationURL(state string) (string, error)
	Authenticate(ctx context.Context, code string) (*auth.Identity, error)
}

// WorkOS is the AuthKit hosted login.
type WorkOS struct {
	clientID    string
	redirectURI string
}

func NewWorkOS(apiKey, clientID, redirectURI string) *WorkOS {
	usermanagement.SetAPIKey(apiKey)
	return &WorkOS{clientID: clientID, redirectURI: redirectURI}
}

func (w *WorkOS) AuthorizationURL(state string) (string, error) {
	u, err := usermanagement.GetAuthorizationURL(usermanagement.GetAuthorizationURLOpts{
		ClientID:    w.clientID,
		RedirectURI: w.redirectURI,
		State:       state,
		Provider:    "authkit",
	})
	if err != nil {
		return "", fmt.Errorf("generating authorization URL: %w", err)
	}
	return u.String(), nil
}

func (w *WorkOS) Authenticate(ctx context.Context, code string) (*auth.Identity, error) {
	resp, err := usermanagement.AuthenticateWithCode(ctx, usermanagement.AuthenticateWithCodeOpts{
		ClientID: w.clientID,
		Code:     code,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return &auth.Identity{
		Subject:   resp.User.ID,
		Email:     resp.User.Email,
		FirstName: resp.User.FirstName,
		LastName:  resp.User.LastName,
		AvatarURL: resp.User.ProfilePictureURL,
	}, nil
}
