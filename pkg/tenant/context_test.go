package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTenantContext(t *testing.T) {
	ctx := WithTenantContext(context.Background(), "4f0c6a1e-0000-4000-8000-000000000001", "farmacia-centro")

	id, err := TenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4f0c6a1e-0000-4000-8000-000000000001", id)

	slug, err := TenantSlug(ctx)
	require.NoError(t, err)
	assert.Equal(t, "farmacia-centro", slug)
}

func TestTenantID_Missing(t *testing.T) {
	_, err := TenantID(context.Background())
	assert.ErrorIs(t, err, ErrNoTenantInContext)

	_, err = TenantID(WithTenantContext(context.Background(), "", ""))
	assert.ErrorIs(t, err, ErrNoTenantInContext)
}
