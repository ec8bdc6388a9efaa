package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/picking-service/pkg/database"
	"github.com/medflow/picking-service/pkg/logger"
	"github.com/testcontainers/testcontainers-go"
)

// StockSearchPath is the search_path integration tests run the stock lookup under
const StockSearchPath = "wms, public"

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalRawDB     *sqlx.DB
	globalSuite     *IntegrationSuite
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	// RawDB connects as the container superuser and bypasses row level security
	RawDB *sqlx.DB
	// DB connects as the application role and is subject to row level security
	DB     *database.DB
	Logger *logger.Logger
}

// RequireIntegrationSuite returns the shared integration suite, starting
// the container on first use. The test is skipped under -short or when no
// container runtime is reachable.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    code := m.Run()
//	    testutil.TerminateContainer(context.Background())
//	    os.Exit(code)
//	}
//
//	func TestSomething(t *testing.T) {
//	    suite := testutil.RequireIntegrationSuite(t)
//	    tenant := suite.SetupTenant(t, "pharmacy-one")
//	    // ... insert fixtures, run queries with tenant.Context(ctx)
//	}
func RequireIntegrationSuite(t *testing.T) *IntegrationSuite {
	t.Helper()
	SkipIfShort(t)
	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(func() {
		globalSuite, containerErr = newIntegrationSuite(context.Background())
	})
	if containerErr != nil {
		t.Fatalf("failed to start integration suite: %v", containerErr)
	}
	return globalSuite
}

func newIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, err := NewPostgresContainer(ctx, DefaultPostgresConfig())
	if err != nil {
		return nil, err
	}
	globalContainer = container

	raw, err := container.Connect(ctx)
	if err != nil {
		return nil, err
	}
	globalRawDB = raw

	if err := container.CreateStockSchema(ctx, raw); err != nil {
		return nil, err
	}

	app, err := container.ConnectAs(ctx, AppRole, AppPassword)
	if err != nil {
		return nil, err
	}

	log := logger.New("test", "test")
	return &IntegrationSuite{
		Container: container,
		RawDB:     raw,
		DB:        database.Wrap(app, StockSearchPath, log),
		Logger:    log,
	}, nil
}

// SetupTenant creates a tenant for a specific test and removes its rows
// when the test finishes. Each test should use its own tenant for isolation.
func (s *IntegrationSuite) SetupTenant(t *testing.T, name string) (*TestTenant, *StockFactory) {
	t.Helper()

	tenant := NewTestTenant(name)
	t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range []string{"inventory_stock", "bin_locations", "warehouse_zones", "batches"} {
			if _, err := s.RawDB.ExecContext(ctx, "DELETE FROM wms."+table+" WHERE tenant_id = $1", tenant.ID); err != nil {
				t.Logf("warning: failed to clean %s for tenant %s: %v", table, tenant.Slug, err)
			}
		}
	})

	return tenant, NewStockFactory(s.RawDB, tenant.ID)
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalSuite != nil {
		globalSuite.DB.Close()
	}
	if globalRawDB != nil {
		globalRawDB.Close()
	}
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
