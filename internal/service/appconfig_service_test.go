package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow/adrenav/internal/model"
	appErr "github.com/careflow/adrenav/internal/pkg/errors"
)

func TestAppConfigService_WithoutStore(t *testing.T) {
	svc := NewAppConfigService(nil)
	ctx := context.Background()

	require.Empty(t, svc.Map(ctx))

	public := svc.Public(ctx)
	require.Len(t, public, len(model.AppConfigKeys))
	for _, key := range model.AppConfigKeys {
		require.Contains(t, public, key)
		require.Nil(t, public[key])
	}

	entries, err := svc.Entries(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)

	err = svc.Update(ctx, map[string]string{model.ConfigKeyBillingPhone: "555-0100"})
	require.ErrorIs(t, err, appErr.ErrNoStore)
}
