package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithTenantRLS executes fn inside a transaction scoped to one tenant.
//
// Usage in repositories:
//
//	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
//	    return sqlx.SelectContext(ctx, r.db.Querier(ctx), &rows, query, args...)
//	})
//
// The transaction sets a local search_path and app.current_tenant, which the
// row level security policies on the stock tables compare against tenant_id.
// SET LOCAL settings vanish at commit, so pooled connections come back clean.
func (db *DB) WithTenantRLS(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		searchPath := db.searchPath
		if searchPath == "" {
			searchPath = "public"
		}
		// search_path is operator configuration, never request input
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s", searchPath)); err != nil {
			return fmt.Errorf("failed to set search_path to %s: %w", searchPath, err)
		}

		if _, err := tx.ExecContext(ctx, "SELECT set_config('app.current_tenant', $1, true)", tenantID); err != nil {
			return fmt.Errorf("failed to set app.current_tenant: %w", err)
		}

		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
