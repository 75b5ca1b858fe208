package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	"github.com/dropDatabas3/gatekeeper/internal/security/lockout"
	"github.com/dropDatabas3/gatekeeper/internal/security/password"
	"github.com/dropDatabas3/gatekeeper/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fastParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func newStore(t *testing.T, threshold int) (*Store, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.RBAC().CreateRole(ctx, types.Role{Name: "Recruiter"}))

	hash, err := password.Hash(fastParams, "correct horse")
	require.NoError(t, err)
	require.NoError(t, st.Users().Create(ctx, &types.User{
		Email:       "Alice@Example.com",
		DisplayName: "Alice",
		Credentials: types.LocalCredentials{PasswordHash: hash},
		Role:        "Recruiter",
		Active:      true,
	}))
	require.NoError(t, st.Users().Create(ctx, &types.User{
		Email:       "fed@example.com",
		Credentials: types.FederatedCredentials{SubjectID: "sub-1"},
		Role:        "Recruiter",
		Active:      true,
	}))
	return New(st.Users(), lockout.NewPolicy(lockout.NewMemoryCounter(), threshold, 15*time.Minute)), st
}

func TestVerify_Success(t *testing.T) {
	s, _ := newStore(t, 5)
	u, err := s.Verify(context.Background(), "  alice@EXAMPLE.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.DisplayName)
}

func TestVerify_Failures(t *testing.T) {
	s, _ := newStore(t, 5)
	ctx := context.Background()

	_, err := s.Verify(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Verify(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrNotFound)

	// usuario federado: no tiene password local
	_, err = s.Verify(ctx, "fed@example.com", "whatever")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerify_LocksAfterThreshold(t *testing.T) {
	s, _ := newStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Verify(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}
	// 4to y 5to intento bloqueados aunque el password sea correcto
	_, err := s.Verify(ctx, "alice@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrAccountLocked)
	_, err = s.Verify(ctx, "ALICE@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestVerify_SuccessResetsCounter(t *testing.T) {
	s, _ := newStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = s.Verify(ctx, "alice@example.com", "wrong")
	}
	_, err := s.Verify(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _ = s.Verify(ctx, "alice@example.com", "wrong")
	}
	_, err = s.Verify(ctx, "alice@example.com", "correct horse")
	assert.NoError(t, err)
}

func TestVerify_UnknownEmailCountsTowardsLockout(t *testing.T) {
	s, _ := newStore(t, 2)
	ctx := context.Background()

	_, _ = s.Verify(ctx, "ghost@example.com", "a")
	_, _ = s.Verify(ctx, "ghost@example.com", "b")
	_, err := s.Verify(ctx, "ghost@example.com", "c")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestVerify_LegacyBcrypt(t *testing.T) {
	s, st := newStore(t, 5)
	ctx := context.Background()

	h, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.Users().Create(ctx, &types.User{
		Email:       "old@example.com",
		Credentials: types.LocalCredentials{PasswordHash: string(h)},
		Role:        "Recruiter",
		Active:      true,
	}))

	_, err = s.Verify(ctx, "old@example.com", "legacy-pass")
	assert.NoError(t, err)
}
