package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store"
)

// ErrSubjectMismatch is returned when the email already belongs to a user
// linked to a different provider subject.
var ErrSubjectMismatch = errors.New("email is linked to another account")

// Provision resolves a provider identity to a local user. A known subject
// refreshes the profile, a pre-seeded row with the same email gets linked,
// anything else creates a new user.
func Provision(ctx context.Context, users store.UserStore, id *Identity) (*models.User, error) {
	if id.Subject == "" {
		return nil, ErrUnauthorized
	}
	subject := id.Subject
	user := &models.User{
		ExternalID: &subject,
		Email:      strings.ToLower(id.Email),
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		AvatarURL:  id.AvatarURL,
	}

	if _, err := users.GetByExternalID(ctx, subject); err == nil {
		if err := users.UpsertByExternalID(ctx, user); err != nil {
			return nil, fmt.Errorf("refreshing user profile: %w", err)
		}
		return user, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	existing, err := users.GetByEmail(ctx, user.Email)
	switch {
	case err == nil:
		if existing.ExternalID != nil && *existing.ExternalID != subject {
			return nil, ErrSubjectMismatch
		}
		existing.ExternalID = &subject
		if existing.FirstName == "" {
			existing.FirstName = id.FirstName
		}
		if existing.LastName == "" {
			existing.LastName = id.LastName
		}
		if existing.AvatarURL == "" {
			existing.AvatarURL = id.AvatarURL
		}
		if err := users.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("linking user to provider: %w", err)
		}
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if err := users.UpsertByExternalID(ctx, user); err != nil {
		return nil, fmt.Errorf("provisioning user: %w", err)
	}
	return user, nil
}
