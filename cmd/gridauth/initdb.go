// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gridauth/gridauth/internal/config"
)

// NewInitDBCmd creates the init-db subcommand.
func NewInitDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the required MongoDB indexes",
		Long: `Create the unique email index on the users collection. The serve
command also does this at startup; init-db exists for provisioning
pipelines that prepare the database ahead of a deploy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runInitDBWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("mongo.url", "", "MongoDB connection string")
	cmd.Flags().String("mongo.database", "gridauth", "MongoDB database name")

	return cmd
}

// runInitDBWithDeps creates the indexes with injectable dependencies.
// If deps is nil, default implementations are used.
func runInitDBWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = defaultStoreFactory
	}

	// Only the store part of the config matters here; signing keys and
	// mail settings are the serve command's concern.
	if cfg.Mongo.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("mongo.url is required (or set GRIDAUTH_MONGO_URL)")
	}

	store, closeStore, err := deps.StoreFactory(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if closeErr := closeStore(closeCtx); closeErr != nil {
			cmd.PrintErrln("error closing store connection:", closeErr)
		}
	}()

	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	cmd.Println("Indexes created")
	return nil
}
