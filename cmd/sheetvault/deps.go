// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package main

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sheetvault/sheetvault/internal/auth"
	"github.com/sheetvault/sheetvault/internal/character"
	"github.com/sheetvault/sheetvault/internal/observability"
	"github.com/sheetvault/sheetvault/internal/sheet/postgres"
	"github.com/sheetvault/sheetvault/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// Connect opens the database and waits until it answers.
	// Default: store.Connect
	Connect func(ctx context.Context, url string, retry store.RetryConfig) (Database, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// ServicesFactory builds the application services over an open database.
	// Default: newServices
	ServicesFactory func(db Database, recorder character.Recorder) (*Services, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, db store.Pinger) ObservabilityServer
}

// withDefaults returns a copy of d with nil fields filled in.
func (d Deps) withDefaults() Deps {
	if d.Connect == nil {
		d.Connect = func(ctx context.Context, url string, retry store.RetryConfig) (Database, error) {
			pool, err := store.Connect(ctx, url, retry)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (Migrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if d.ServicesFactory == nil {
		d.ServicesFactory = newServices
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, db store.Pinger) ObservabilityServer {
			return observability.NewServer(addr, db)
		}
	}
	return d
}

// Database wraps the methods used from *pgxpool.Pool.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Services are the application entry points the commands drive.
type Services struct {
	Registrar  *auth.Registrar
	Characters *character.Service
}

func newServices(db Database, recorder character.Recorder) (*Services, error) {
	registrar, err := auth.NewRegistrar(postgres.NewUserRepository(db), nil)
	if err != nil {
		return nil, err
	}
	characters := character.NewService(character.ServiceConfig{
		Characters: postgres.NewCharacterRepository(db),
		Recorder:   recorder,
	})
	return &Services{Registrar: registrar, Characters: characters}, nil
}
