// Package sessionvault persists the auth session in the local metadata
// table, sealed with AES-GCM under a key derived from a local secret.
package sessionvault

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/kumo/internal/common"
	"github.com/dmitrijs2005/kumo/internal/cryptox"
	"github.com/dmitrijs2005/kumo/internal/dbx"
)

const (
	keySalt      = "session.salt"
	keyBlob      = "session.blob"
	keyNonce     = "session.nonce"
	keyDeviceKey = "device.key"

	saltSize = 16
)

// Vault implements gateway.SessionStorage.
type Vault struct {
	db     *sql.DB
	secret []byte
}

var _ gateway.SessionStorage = (*Vault)(nil)

// New returns a Vault over db. With an empty secret a random per-install
// device key is generated and kept next to the data, which only guards
// against casual reads of the database file.
func New(db *sql.DB, secret string) *Vault {
	return &Vault{db: db, secret: []byte(secret)}
}

func (v *Vault) key(ctx context.Context, repo metadata.Repository, create bool) ([]byte, error) {
	secret := v.secret
	if len(secret) == 0 {
		dk, err := repo.Get(ctx, keyDeviceKey)
		if err != nil {
			return nil, err
		}
		if dk == nil {
			if !create {
				return nil, nil
			}
			dk = common.GenerateRandByteArray(cryptox.KeySize)
			if err := repo.Set(ctx, keyDeviceKey, dk); err != nil {
				return nil, err
			}
		}
		secret = dk
	}

	salt, err := repo.Get(ctx, keySalt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		if !create {
			return nil, nil
		}
		salt = common.GenerateRandByteArray(saltSize)
		if err := repo.Set(ctx, keySalt, salt); err != nil {
			return nil, err
		}
	}
	return cryptox.DeriveKey(secret, salt), nil
}

// Load returns the stored session, nil when none. A blob that does not open
// under the current secret yields common.ErrVaultLocked.
func (v *Vault) Load(ctx context.Context) (*models.Session, error) {
	var s *models.Session
	err := dbx.WithTx(ctx, v.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		blob, err := repo.Get(ctx, keyBlob)
		if err != nil || blob == nil {
			return err
		}
		nonce, err := repo.Get(ctx, keyNonce)
		if err != nil {
			return err
		}
		key, err := v.key(ctx, repo, false)
		if err != nil {
			return err
		}
		if key == nil {
			return common.ErrVaultLocked
		}
		defer common.WipeByteArray(key)

		var out models.Session
		if err := cryptox.OpenJSON(blob, nonce, key, &out); err != nil {
			return fmt.Errorf("%w: %v", common.ErrVaultLocked, err)
		}
		s = &out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// Save seals and stores s, replacing any previous session.
func (v *Vault) Save(ctx context.Context, s models.Session) error {
	err := dbx.WithTx(ctx, v.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		key, err := v.key(ctx, repo, true)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(key)

		blob, nonce, err := cryptox.SealJSON(s, key)
		if err != nil {
			return err
		}
		if err := repo.Set(ctx, keyBlob, blob); err != nil {
			return err
		}
		return repo.Set(ctx, keyNonce, nonce)
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Keys are kept for the next Save.
func (v *Vault) Clear(ctx context.Context) error {
	if err := metadata.NewSQLiteRepository(v.db).Delete(ctx, keyBlob, keyNonce); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
