package testutil

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/medflow/picking-service/pkg/tenant"
)

// TestTenant represents a test tenant. Tenants share the wms tables and are
// separated by tenant_id under row level security.
type TestTenant struct {
	ID   string
	Slug string
}

// NewTestTenant returns a tenant with a fresh id and a slug derived from name
func NewTestTenant(name string) *TestTenant {
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	return &TestTenant{
		ID:   uuid.New().String(),
		Slug: slug,
	}
}

// Context returns a context carrying the tenant
func (t *TestTenant) Context(ctx context.Context) context.Context {
	return tenant.WithTenantContext(ctx, t.ID, t.Slug)
}

// WithTestTenant adds tenant context to a context.Context
func WithTestTenant(ctx context.Context, t *TestTenant) context.Context {
	return t.Context(ctx)
}

// TestTenantContext creates a context with a generated test tenant
func TestTenantContext() context.Context {
	return NewTestTenant("test-tenant").Context(context.Background())
}
