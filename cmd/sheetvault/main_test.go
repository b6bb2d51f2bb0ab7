// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package main

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetvault/sheetvault/internal/auth"
	"github.com/sheetvault/sheetvault/internal/character"
	"github.com/sheetvault/sheetvault/internal/config"
	"github.com/sheetvault/sheetvault/internal/observability"
	"github.com/sheetvault/sheetvault/internal/sheet/sheettest"
	"github.com/sheetvault/sheetvault/internal/store"
	"github.com/sheetvault/sheetvault/pkg/errutil"
)

const testDatabaseURL = "postgres://sheetvault@localhost/sheetvault_test"

// fakeDB satisfies Database. Only Ping and Close are implemented; the
// repositories never reach the embedded nil interface because the test
// services use mock repositories.
type fakeDB struct {
	Database
	pingErr error
	pings   atomic.Int32
	closed  atomic.Bool
}

func (f *fakeDB) Ping(context.Context) error {
	f.pings.Add(1)
	return f.pingErr
}

func (f *fakeDB) Close() { f.closed.Store(true) }

type fakeMigrator struct {
	calls  []string
	forced int
	status *store.Status
	err    error
	closed bool
}

func (m *fakeMigrator) Up() error   { m.calls = append(m.calls, "up"); return m.err }
func (m *fakeMigrator) Down() error { m.calls = append(m.calls, "down"); return m.err }
func (m *fakeMigrator) Force(v int) error {
	m.calls = append(m.calls, "force")
	m.forced = v
	return m.err
}

func (m *fakeMigrator) Status() (*store.Status, error) {
	m.calls = append(m.calls, "status")
	return m.status, m.err
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

type fakeObsServer struct {
	mu       sync.Mutex
	addr     string
	db       store.Pinger
	errCh    chan error
	startErr error
	started  bool
	stopped  bool
}

func (s *fakeObsServer) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.started = true
	return s.errCh, nil
}

func (s *fakeObsServer) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeObsServer) Addr() string                    { return s.addr }
func (s *fakeObsServer) Metrics() *observability.Metrics { return nil }

var cheapParams = auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

// harness wires fakes into Deps and records what the commands asked for.
type harness struct {
	db         *fakeDB
	connectErr error
	connectURL string
	retry      store.RetryConfig
	migrator   *fakeMigrator
	obs        *fakeObsServer
	users      *sheettest.MockUserRepository
	chars      *sheettest.MockCharacterRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvDatabaseURL, "")
	h := &harness{
		db:       &fakeDB{},
		migrator: &fakeMigrator{},
		obs:      &fakeObsServer{errCh: make(chan error, 1)},
		users:    &sheettest.MockUserRepository{},
		chars:    &sheettest.MockCharacterRepository{},
	}
	t.Cleanup(func() {
		h.users.AssertExpectations(t)
		h.chars.AssertExpectations(t)
	})
	return h
}

func (h *harness) deps() Deps {
	return Deps{
		Connect: func(_ context.Context, url string, retry store.RetryConfig) (Database, error) {
			h.connectURL = url
			h.retry = retry
			if h.connectErr != nil {
				return nil, h.connectErr
			}
			return h.db, nil
		},
		MigratorFactory: func(string) (Migrator, error) {
			return h.migrator, nil
		},
		ServicesFactory: func(_ Database, recorder character.Recorder) (*Services, error) {
			registrar, err := auth.NewRegistrar(h.users, auth.NewArgon2idHasherWithParams(cheapParams))
			if err != nil {
				return nil, err
			}
			return &Services{
				Registrar: registrar,
				Characters: character.NewService(character.ServiceConfig{
					Characters: h.chars,
					Recorder:   recorder,
				}),
			}, nil
		},
		ObservabilityServerFactory: func(addr string, db store.Pinger) ObservabilityServer {
			h.obs.addr = addr
			h.obs.db = db
			return h.obs
		},
	}
}

// run executes the root command with a database URL flag prepended.
func (h *harness) run(ctx context.Context, args ...string) (string, error) {
	return h.runRaw(ctx, append([]string{"--database-url", testDatabaseURL, "--log-format", "text"}, args...)...)
}

func (h *harness) runRaw(ctx context.Context, args ...string) (string, error) {
	cmd := NewRootCmd(h.deps())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd(Deps{})

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"serve", "migrate", "seed", "user", "character"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd(Deps{})

	for _, name := range []string{"config", "log-format", "log-level", "database-url", "metrics-addr"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "json", cmd.PersistentFlags().Lookup("log-format").DefValue)
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(context.Background(), "--log-format", "xml", "migrate", "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Empty(t, h.migrator.calls)
}

func TestRootCmd_ConnectUsesConfiguredRetry(t *testing.T) {
	h := newHarness(t)
	h.users.On("GetByEmail", anyCtx, "pip@example.com").Return(pip, nil)
	h.chars.On("FindOwnCharacters", anyCtx, pip.ID).Return(nil, nil)
	h.chars.On("FindPrivateCharactersControlledByOthers", anyCtx, pip.ID).Return(nil, nil)
	h.chars.On("FindKnownOwnerlessCharacters", anyCtx).Return(nil, nil)

	_, err := h.run(context.Background(),
		"--database-connect-attempts", "7",
		"--database-connect-backoff", "1s",
		"character", "home", "--as", "pip@example.com")
	require.NoError(t, err)
	assert.Equal(t, testDatabaseURL, h.connectURL)
	assert.Equal(t, uint64(7), h.retry.Attempts)
	assert.Equal(t, "1s", h.retry.Backoff.String())
	assert.True(t, h.db.closed.Load())
}

func TestDeps_WithDefaults(t *testing.T) {
	d := Deps{}.withDefaults()

	assert.NotNil(t, d.Connect)
	assert.NotNil(t, d.MigratorFactory)
	assert.NotNil(t, d.ServicesFactory)
	assert.NotNil(t, d.ObservabilityServerFactory)

	srv := d.ObservabilityServerFactory("127.0.0.1:0", nil)
	assert.NotNil(t, srv.Metrics())
}

func TestDeps_DefaultConnectRejectsMalformedURL(t *testing.T) {
	d := Deps{}.withDefaults()

	db, err := d.Connect(context.Background(), "://not a url", store.RetryConfig{Attempts: 1})
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
	assert.Nil(t, db)
}
