package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"muxlti/internal/config"
	"muxlti/internal/mux"
	"muxlti/internal/repository"
)

type signingKeyCreator interface {
	CreateSigningKey(ctx context.Context) (*mux.SigningKey, error)
}

var newSigningKeyCreator = func(cfg *config.MuxConfig) (signingKeyCreator, error) {
	client, err := newMuxClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize waiting uploads with Mux and delete expired upload urls",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), inlineDispatcher)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.sync.Synchronize(cmd.Context())
		},
	}
}

// newSigningKeyCmd создает ключ подписи в Mux и печатает значения для конфигурации.
// Нужен только токен Mux: команда запускается до того, как ключ появится в конфигурации.
func newSigningKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signing-key",
		Short: "Create a Mux URL signing key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(config.MuxAPIFields...)
			if err != nil {
				return err
			}
			defer log.Sync()

			client, err := newSigningKeyCreator(&cfg.Mux)
			if err != nil {
				return err
			}
			key, err := client.CreateSigningKey(cmd.Context())
			if err != nil {
				return err
			}
			log.Info("Created signing key", "key_id", key.ID, "created_at", key.CreatedAt)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "MUX_SIGNINGKEYID=%s\n", key.ID)
			fmt.Fprintf(out, "MUX_SIGNINGPRIVATEKEY=%s\n", key.PrivateKey)
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database if needed and apply migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(config.DatabaseFields...)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := connectWithRetry(&cfg.Database, log, 5, 5*time.Second)
			if err != nil {
				return err
			}
			db.Close()

			return repository.RunMigrations(cfg.Database.GetURL(), log)
		},
	}
}
