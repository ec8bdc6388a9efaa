// Package testutil provides testing utilities for the picking service.
// It includes a testcontainers PostgreSQL with the stock schema, tenant
// helpers, sqlmock wrappers and stock fixtures.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Application role used by integration tests. Unlike the container's
// superuser it is subject to row level security.
const (
	AppRole     = "picking_app"
	AppPassword = "picking_app"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "medflow_wms_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "medflow_wms_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container as the superuser
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	return c.connect(ctx, c.DSN)
}

// ConnectAs returns a sqlx.DB connection to the container as user
func (c *PostgresContainer) ConnectAs(ctx context.Context, user, password string) (*sqlx.DB, error) {
	u, err := url.Parse(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse container DSN: %w", err)
	}
	u.User = url.UserPassword(user, password)
	return c.connect(ctx, u.String())
}

func (c *PostgresContainer) connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateStockSchema creates the wms schema read by the stock lot lookup,
// with row level security keyed on app.current_tenant, and the application role
func (c *PostgresContainer) CreateStockSchema(ctx context.Context, db *sqlx.DB) error {
	schema := fmt.Sprintf(`
		CREATE SCHEMA IF NOT EXISTS wms;

		CREATE TABLE IF NOT EXISTS wms.warehouse_zones (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			name VARCHAR(100) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS wms.bin_locations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			zone_id UUID REFERENCES wms.warehouse_zones(id),
			code VARCHAR(50) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS wms.batches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			product_id UUID NOT NULL,
			batch_number VARCHAR(100) NOT NULL,
			expiry_date DATE NOT NULL
		);

		CREATE TABLE IF NOT EXISTS wms.inventory_stock (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL,
			branch_id UUID NOT NULL,
			batch_id UUID NOT NULL REFERENCES wms.batches(id),
			bin_id UUID REFERENCES wms.bin_locations(id),
			quantity INTEGER NOT NULL CHECK (quantity >= 0)
		);

		DO $$
		DECLARE t TEXT;
		BEGIN
			FOREACH t IN ARRAY ARRAY['warehouse_zones', 'bin_locations', 'batches', 'inventory_stock'] LOOP
				EXECUTE format('ALTER TABLE wms.%%I ENABLE ROW LEVEL SECURITY', t);
				EXECUTE format('DROP POLICY IF EXISTS tenant_isolation ON wms.%%I', t);
				EXECUTE format(
					'CREATE POLICY tenant_isolation ON wms.%%I USING (tenant_id = NULLIF(current_setting(''app.current_tenant'', true), '''')::uuid)',
					t);
			END LOOP;
		END $$;

		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = '%[1]s') THEN
				CREATE ROLE %[1]s LOGIN PASSWORD '%[2]s';
			END IF;
		END $$;

		GRANT USAGE ON SCHEMA wms TO %[1]s;
		GRANT SELECT ON ALL TABLES IN SCHEMA wms TO %[1]s;
	`, AppRole, AppPassword)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create stock schema: %w", err)
	}

	return nil
}
