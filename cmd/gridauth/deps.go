package main

import (
	"context"

	"github.com/gridauth/gridauth/internal/auth"
	mongostore "github.com/gridauth/gridauth/internal/auth/mongo"
	"github.com/gridauth/gridauth/internal/config"
	"github.com/gridauth/gridauth/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve and init-db
// commands. All fields with nil values will use their default
// implementations.
type ServeDeps struct {
	// StoreFactory connects to the credential store.
	// Default: mongo.Connect + mongo.NewUserRepository
	StoreFactory func(ctx context.Context, cfg config.MongoConfig) (UserStore, StoreCloser, error)

	// MailerFactory builds the reset-link sender.
	// Default: mail.NewSMTPSender, or mail.NewLogSender when mail is disabled
	MailerFactory func(cfg config.MailConfig) auth.ResetMailer

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer
}

// UserStore is the repository surface the commands need: the auth
// repository plus index management.
type UserStore interface {
	auth.UserRepository
	EnsureIndexes(ctx context.Context) error
}

// StoreCloser releases the store connection.
type StoreCloser func(ctx context.Context) error

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// defaultStoreFactory connects to MongoDB and returns the user
// repository on the configured database.
func defaultStoreFactory(ctx context.Context, cfg config.MongoConfig) (UserStore, StoreCloser, error) {
	client, err := mongostore.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	repo := mongostore.NewUserRepository(client.Database(cfg.Database))
	return repo, client.Disconnect, nil
}
