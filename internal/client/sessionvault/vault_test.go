package sessionvault

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/kumo/internal/client/client"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/kumo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var sess = models.Session{
	AccessToken:  "access",
	RefreshToken: "refresh",
	ExpiresAt:    1700000000,
	User:         models.SessionUser{ID: "u1", Email: "a@b.c"},
}

func TestVault_EmptyLoadsNil(t *testing.T) {
	v := New(newDB(t), "secret")
	s, err := v.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestVault_SaveLoadClear(t *testing.T) {
	db := newDB(t)
	v := New(db, "secret")
	ctx := context.Background()

	require.NoError(t, v.Save(ctx, sess))

	raw, err := metadata.NewSQLiteRepository(db).Get(ctx, keyBlob)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "access")

	got, err := v.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess, *got)

	require.NoError(t, v.Clear(ctx))
	got, err = v.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVault_WrongSecretIsLocked(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	require.NoError(t, New(db, "secret").Save(ctx, sess))

	_, err := New(db, "other").Load(ctx)
	require.ErrorIs(t, err, common.ErrVaultLocked)
}

func TestVault_DeviceKeyWhenNoSecret(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	require.NoError(t, New(db, "").Save(ctx, sess))

	dk, err := metadata.NewSQLiteRepository(db).Get(ctx, keyDeviceKey)
	require.NoError(t, err)
	assert.Len(t, dk, 32)

	got, err := New(db, "").Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.User.ID)
}
