package jwt

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func newSvc(t *testing.T, now *time.Time) *Service {
	t.Helper()
	s, err := NewService(Config{Issuer: "gk", Secret: secret, TTL: 10 * time.Minute})
	require.NoError(t, err)
	s.now = func() time.Time { return *now }
	return s
}

func TestIssueValidate_RoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newSvc(t, &now)

	tok, err := s.Issue(types.User{ID: "u-1", Role: "Recruiter"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.Type)
	assert.Equal(t, now.Add(10*time.Minute).UTC(), tok.ExpiresAt)

	c, err := s.Validate(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UserID)
	assert.Equal(t, "Recruiter", c.Role)
	assert.NotEmpty(t, c.TokenID)
	assert.Equal(t, now.Unix(), c.IssuedAt.Unix())
}

func TestValidate_ExpiredWithLeeway(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newSvc(t, &now)
	tok, err := s.Issue(types.User{ID: "u-1", Role: "Recruiter"})
	require.NoError(t, err)

	now = now.Add(10*time.Minute + 20*time.Second) // dentro del leeway
	_, err = s.Validate(tok.Value)
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Validate(tok.Value)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidate_SignatureInvalid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newSvc(t, &now)
	other, err := NewService(Config{Issuer: "gk", Secret: strings.Repeat("x", 32)})
	require.NoError(t, err)
	other.now = s.now

	tok, err := other.Issue(types.User{ID: "u-1", Role: "Super Admin"})
	require.NoError(t, err)
	_, err = s.Validate(tok.Value)
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	// cambiar el payload invalida la firma
	good, _ := s.Issue(types.User{ID: "u-1", Role: "Recruiter"})
	parts := strings.Split(good.Value, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-1","role":"Super Admin","iss":"gk","iat":1700000000,"exp":1800000000}`))
	_, err = s.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newSvc(t, &now)

	none := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, jwtv5.MapClaims{
		"sub": "u-1", "role": "Super Admin", "iss": "gk",
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})
	raw, err := none.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Validate(raw)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestValidate_Malformed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newSvc(t, &now)

	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := s.Validate(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}

	// firmado correctamente pero sin rol
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub": "u-1", "iss": "gk", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})
	raw, _ := tk.SignedString([]byte(secret))
	_, err := s.Validate(raw)
	assert.ErrorIs(t, err, ErrMalformed)

	// issuer distinto
	tk = jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub": "u-1", "role": "Recruiter", "iss": "other", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})
	raw, _ = tk.SignedString([]byte(secret))
	_, err = s.Validate(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssue_DoesNotRevokePrevious(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newSvc(t, &now)
	u := types.User{ID: "u-1", Role: "Recruiter"}
	t1, _ := s.Issue(u)
	t2, _ := s.Issue(u)
	_, err1 := s.Validate(t1.Value)
	_, err2 := s.Validate(t2.Value)
	assert.NoError(t, err1)
	assert.NoError(t, err2)
}
