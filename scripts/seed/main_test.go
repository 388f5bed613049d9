package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/store"
)

const adminID = "4f6c1a52-7f0e-4a3b-9d4e-2b7f1c9e8a01"

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	records := store.NewMemory()

	require.NoError(t, seed(ctx, records, adminID, &bytes.Buffer{}))
	require.NoError(t, seed(ctx, records, adminID, &bytes.Buffer{}))

	products, err := catalog.NewRepository(records).Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, len(catalog.SeedProducts()))

	svc := rbac.NewService(records, rbac.Options{})
	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, len(rbac.DemoRoles()))

	perms, err := svc.EffectivePermissions(ctx, adminID)
	require.NoError(t, err)
	require.Contains(t, perms, shared.PermSalesDebt)
	require.Contains(t, perms, shared.PermRolesEdit)
}
