package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-that-is-32-bytes-long!!"

const testUserID = "6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"

func newTestTokenManager(t *testing.T, now time.Time) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(TokenConfig{
		Secret: []byte(testSecret),
		TTL:    time.Hour,
		Issuer: "clinicman",
	})
	require.NoError(t, err)
	m.now = func() time.Time { return now }
	return m
}

func TestNewTokenManager_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{Secret: []byte("short"), TTL: time.Hour})
	require.Error(t, err)
}

func TestNewTokenManager_RejectsNonPositiveTTL(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{Secret: []byte(testSecret), TTL: 0})
	require.Error(t, err)
}

func TestNewTokenManager_RejectsNegativeLeeway(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{Secret: []byte(testSecret), TTL: time.Hour, Leeway: -time.Second})
	require.Error(t, err)
}

func TestIssue_SetsRegisteredClaims(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, now)

	token, expiresAt, err := m.Issue(testUserID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, testUserID, claims.Subject)
	assert.Equal(t, "clinicman", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	m := newTestTokenManager(t, time.Now())

	a, _, err := m.Issue(testUserID)
	require.NoError(t, err)
	b, _, err := m.Issue(testUserID)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestIssue_RequiresUserID(t *testing.T) {
	m := newTestTokenManager(t, time.Now())
	_, _, err := m.Issue("")
	require.Error(t, err)
}

func TestVerify_TokenSignedTenSecondsAgoIsAdmitted(t *testing.T) {
	issuedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, issuedAt)

	token, _, err := m.Issue(testUserID)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(10 * time.Second) }

	subject, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, subject)
}

func TestVerify_ElapsedTTLIsExpired(t *testing.T) {
	issuedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, issuedAt)

	token, _, err := m.Issue(testUserID)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(time.Hour + time.Second) }

	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_LeewayExtendsExpiry(t *testing.T) {
	issuedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	m, err := NewTokenManager(TokenConfig{
		Secret: []byte(testSecret),
		TTL:    time.Hour,
		Issuer: "clinicman",
		Leeway: 30 * time.Second,
	})
	require.NoError(t, err)
	m.now = func() time.Time { return issuedAt }

	token, _, err := m.Issue(testUserID)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(time.Hour + 10*time.Second) }
	_, err = m.Verify(token)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(time.Hour + time.Minute) }
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_AlteredPayloadIsInvalid(t *testing.T) {
	m := newTestTokenManager(t, time.Now())

	token, _, err := m.Issue(testUserID)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &claims))
	claims["sub"] = "00000000-0000-0000-0000-000000000000"

	altered, err := json.Marshal(claims)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(altered)

	_, err = m.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrTokenInvalid)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerify_ExpiredTakesPrecedenceOverSignature(t *testing.T) {
	issuedAt := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	other, err := NewTokenManager(TokenConfig{
		Secret: []byte("another-secret-that-is-also-32-bytes!!"),
		TTL:    time.Hour,
		Issuer: "clinicman",
	})
	require.NoError(t, err)
	other.now = func() time.Time { return issuedAt }

	token, _, err := other.Issue(testUserID)
	require.NoError(t, err)

	m := newTestTokenManager(t, issuedAt.Add(2*time.Hour))

	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecretIsInvalid(t *testing.T) {
	other, err := NewTokenManager(TokenConfig{
		Secret: []byte("another-secret-that-is-also-32-bytes!!"),
		TTL:    time.Hour,
		Issuer: "clinicman",
	})
	require.NoError(t, err)

	token, _, err := other.Issue(testUserID)
	require.NoError(t, err)

	m := newTestTokenManager(t, time.Now())
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   testUserID,
		Issuer:    "clinicman",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	m := newTestTokenManager(t, now)
	for name, token := range map[string]string{"HS512": hs512, "none": none} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			require.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestVerify_RequiresExpiration(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: testUserID, Issuer: "clinicman"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	m := newTestTokenManager(t, time.Now())
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RejectsForeignIssuer(t *testing.T) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   testUserID,
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	m := newTestTokenManager(t, now)
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RejectsEmptySubject(t *testing.T) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "clinicman",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	m := newTestTokenManager(t, now)
	_, err = m.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_MalformedTokens(t *testing.T) {
	m := newTestTokenManager(t, time.Now())

	for _, raw := range []string{"", "abc", "a.b.c", "not.a.jwt.at.all"} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", raw)
	}
}

func TestVerify_IsIdempotent(t *testing.T) {
	m := newTestTokenManager(t, time.Now())

	token, _, err := m.Issue(testUserID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		subject, err := m.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, testUserID, subject)
	}
}
