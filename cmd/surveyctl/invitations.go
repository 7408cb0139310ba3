package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"surveyhub-backend/shared/store"
)

func newExpireInvitationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-invitations",
		Short: "Mark pending invitations past their expiry as expired",
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			return expireInvitations(cmd.Context(), e.stores.Invitations, time.Now().UTC(), cmd.OutOrStdout())
		}),
	}
}

func expireInvitations(ctx context.Context, invitations store.InvitationStore, now time.Time, out io.Writer) error {
	n, err := invitations.ExpireStale(ctx, now)
	if err != nil {
		return fmt.Errorf("expiring invitations: %w", err)
	}
	_, _ = fmt.Fprintf(out, "%d invitation(s) expired\n", n)
	return nil
}
