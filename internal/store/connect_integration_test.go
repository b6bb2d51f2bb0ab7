// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sheetvault/sheetvault/internal/store"
)

var _ = Describe("Connect", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("sheetvault_test"),
			postgres.WithUsername("sheetvault"),
			postgres.WithPassword("sheetvault"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	It("connects on the first attempt when the database is up", func() {
		pool, err := store.Connect(ctx, connStr, store.RetryConfig{Attempts: 1})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		Expect(store.ReadinessProbe(pool, time.Second)()).To(BeTrue())
	})

	It("reports not ready once the pool is closed", func() {
		pool, err := store.Connect(ctx, connStr, store.RetryConfig{Attempts: 1})
		Expect(err).NotTo(HaveOccurred())
		pool.Close()

		Expect(store.ReadinessProbe(pool, time.Second)()).To(BeFalse())
	})

	It("migrates the schema up and reports it applied", func() {
		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(migrator.Close()).To(Succeed()) }()

		Expect(migrator.Up()).To(Succeed())
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Pending).To(BeEmpty())
		Expect(st.Dirty).To(BeFalse())
	})
})
