package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"surveyhub-backend/shared/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			if err := database.Migrate(e.db, e.log); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		}),
	}
}

func newSeedCmd() *cobra.Command {
	var adminEmail string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed permissions, system roles and the super admin",
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			email := adminEmail
			if email == "" {
				email = e.cfg.SuperAdminEmail
			}
			if err := database.Migrate(e.db, e.log); err != nil {
				return err
			}
			if err := database.SeedDatabase(e.db, email, e.log); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "database seeded, super admin %s\n", email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "super admin email (defaults to SUPER_ADMIN_EMAIL)")
	return cmd
}

var errResetNotConfirmed = errors.New("refusing to drop tables without --force")

func newResetCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop every table",
		PreRunE: func(*cobra.Command, []string) error {
			if !force {
				return errResetNotConfirmed
			}
			return nil
		},
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			if e.cfg.IsProduction() {
				return errors.New("reset-db is disabled in production")
			}
			if err := database.Reset(e.db, e.log); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "all tables dropped; run 'surveyctl seed' to recreate them")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm dropping all data")
	return cmd
}
