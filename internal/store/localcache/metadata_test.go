package localcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/models"
)

func TestMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewMetadataRepo(db.Reader())

	_, err := repo.Get(ctx, MetaImportedCount)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return NewMetadataRepo(tx).Set(ctx, MetaImportedCount, "1500")
	}))
	v, err := repo.Get(ctx, MetaImportedCount)
	require.NoError(t, err)
	assert.Equal(t, "1500", v)

	// upsert overwrites
	require.NoError(t, db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return NewMetadataRepo(tx).Set(ctx, MetaImportedCount, "1501")
	}))
	v, err = repo.Get(ctx, MetaImportedCount)
	require.NoError(t, err)
	assert.Equal(t, "1501", v)

	require.NoError(t, db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return NewMetadataRepo(tx).Delete(ctx, MetaImportedCount)
	}))
	_, err = repo.Get(ctx, MetaImportedCount)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMetadataTombstones(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewMetadataRepo(tx)
		if err := r.Set(ctx, MetaDeletePrefix+"42", "42"); err != nil {
			return err
		}
		if err := r.Set(ctx, MetaDeletePrefix+"99", "99"); err != nil {
			return err
		}
		return r.Set(ctx, MetaLastPull, models.FormatTime(time.Now()))
	}))

	tombs, err := NewMetadataRepo(db.Reader()).ListPrefix(ctx, MetaDeletePrefix)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		MetaDeletePrefix + "42": "42",
		MetaDeletePrefix + "99": "99",
	}, tombs)
}
