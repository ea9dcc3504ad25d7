package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
	"github.com/stretchr/testify/require"
)

func hashRefresh(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func saveToken(t *testing.T, st *Storage, u *models.User, plain string, expires time.Time) *models.RefreshToken {
	t.Helper()

	tok := &models.RefreshToken{
		TokenHash: hashRefresh(plain),
		UserID:    u.ID,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: expires,
	}
	require.NoError(t, st.SaveRefreshToken(context.Background(), tok))

	return tok
}

func TestIntegration_RefreshToken_SaveAndGet(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "rt@example.com")
	tok := saveToken(t, st, u, "plain-1", time.Now().Add(time.Hour).UTC())

	got, err := st.RefreshTokenByHash(context.Background(), tok.TokenHash)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.False(t, got.Revoked)
	require.WithinDuration(t, tok.ExpiresAt, got.ExpiresAt, time.Second)

	err = st.SaveRefreshToken(context.Background(), tok)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.RefreshTokenByHash(context.Background(), hashRefresh("absent"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RevokeRefreshTokenIfActive_Flow(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "revoke@example.com")
	tok := saveToken(t, st, u, "plain-2", time.Now().Add(time.Hour).UTC())

	ok, err := st.RevokeRefreshTokenIfActive(context.Background(), tok.TokenHash)
	require.NoError(t, err)
	require.True(t, ok)

	// Повторный отзыв: токен есть, но уже отозван.
	ok, err = st.RevokeRefreshTokenIfActive(context.Background(), tok.TokenHash)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = st.RevokeRefreshTokenIfActive(context.Background(), hashRefresh("absent"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RevokeUserTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "all@example.com")
	other := seedUser(t, st, "other@example.com")

	saveToken(t, st, u, "a", time.Now().Add(time.Hour).UTC())
	saveToken(t, st, u, "b", time.Now().Add(time.Hour).UTC())
	kept := saveToken(t, st, other, "c", time.Now().Add(time.Hour).UTC())

	n, err := st.RevokeUserTokens(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := st.RefreshTokenByHash(context.Background(), kept.TokenHash)
	require.NoError(t, err)
	require.False(t, got.Revoked)
}

func TestIntegration_DeleteExpiredTokens_DeletesOnlyExpired(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "exp@example.com")
	now := time.Now().UTC()

	expired := saveToken(t, st, u, "old", now.Add(-time.Minute))
	alive := saveToken(t, st, u, "new", now.Add(time.Hour))

	n, err := st.DeleteExpiredTokens(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.RefreshTokenByHash(context.Background(), expired.TokenHash)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshTokenByHash(context.Background(), alive.TokenHash)
	require.NoError(t, err)
}
