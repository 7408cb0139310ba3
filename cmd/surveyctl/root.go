package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/database"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "surveyctl",
		Short:         "SurveyHub operator CLI",
		Long:          "surveyctl migrates and seeds the database, expires invitations and inspects plans.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newExpireInvitationsCmd())
	root.AddCommand(newPlansCmd())
	return root
}

// env is what the database commands run against.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	stores *store.Stores
}

func (e *env) close() {
	_ = database.CloseDatabase(e.db)
	_ = e.log.Sync()
}

func openEnv() (*env, error) {
	config.LoadConfig()
	cfg := config.GetConfig()

	log, err := logger.New("surveyctl", cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	db, err := database.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db, stores: store.NewStores(db)}, nil
}

// withEnv opens the database around fn.
func withEnv(fn func(cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd, e)
	}
}
