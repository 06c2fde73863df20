package durable

import (
	"context"
	"testing"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSKU_NormalizesAndRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddSKU(ctx, "ecoflow", " abc123 ", "battery pack"))

	err := s.AddSKU(ctx, "ecoflow", "ABC123", "same thing, different case")
	require.ErrorIs(t, err, common.ErrDuplicate)

	all, err := s.GetAllSKUs(ctx, "ecoflow")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ABC123", all[0].SKU)
	assert.Equal(t, "battery pack", all[0].Description)
	require.NotNil(t, all[0].ID)
}

func TestAddSKUsBulk_CountsPartialFailures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddSKU(ctx, "ecoflow", "DUP1", ""))

	added, failed, err := s.AddSKUsBulk(ctx, "ecoflow", []models.ReferenceEntry{
		{SKU: "NEW1"},
		{SKU: "dup1"},
		{SKU: "NEW2", Description: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, failed)

	count, err := s.CountSKUs(ctx, "ecoflow")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDeleteSKU(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddSKU(ctx, "ecoflow", "GONE1", ""))
	require.NoError(t, s.DeleteSKU(ctx, "ecoflow", "gone1"))

	err := s.DeleteSKU(ctx, "ecoflow", "GONE1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestClearSKUs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, sku := range []string{"A1", "A2", "A3"} {
		require.NoError(t, s.AddSKU(ctx, "ecoflow", sku, ""))
	}

	n, err := s.ClearSKUs(ctx, "ecoflow")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := s.CountSKUs(ctx, "ecoflow")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSKUs_ProjectIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddSKU(ctx, "ecoflow", "ECO1", ""))
	require.NoError(t, s.AddSKU(ctx, "halo", "HALO1", ""))

	eco, err := s.GetAllSKUs(ctx, "ecoflow")
	require.NoError(t, err)
	require.Len(t, eco, 1)
	assert.Equal(t, "ECO1", eco[0].SKU)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// seed through the raw handle; user creation is not this subsystem's job
	db, err := s.usersDB(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES
		 ('zed', 'x', '2026-01-01T00:00:00Z'),
		 ('amy', 'x', '2026-01-02T00:00:00Z')`)
	require.NoError(t, err)

	users, err := s.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy", users[0].Username, "ordered by username")

	u, err := s.GetUserByUsername(ctx, "zed")
	require.NoError(t, err)
	assert.Equal(t, "zed", u.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, common.ErrNotFound)
}
