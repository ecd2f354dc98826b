package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClaims(ttl time.Duration) Claims {
	return NewAccessClaims(
		"01JC0USER0000000000000000", "01JC0TENANT00000000000000",
		"jane@example.com", "Jane Doe",
		false,
		"canopy-accounts",
		ttl,
		time.Now(),
	)
}

func TestHS256RoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	signer, err := NewSignerHS256(secret)
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	tokenStr, err := signer.Sign(testClaims(time.Minute))
	require.NoError(t, err)

	claims, err := NewVerifierHS256(secret, "canopy-accounts").Verify(tokenStr)
	require.NoError(t, err)
	require.Equal(t, "01JC0USER0000000000000000", claims.Subject)
	require.Equal(t, "01JC0TENANT00000000000000", claims.TenantID)
	require.Equal(t, "jane@example.com", claims.Email)
	require.False(t, claims.Staff)
	require.NotEmpty(t, claims.ID)
}

func TestHS256RejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewSignerHS256([]byte("too short"))
	require.Error(t, err)
}

func TestHS256RejectsWrongSecret(t *testing.T) {
	t.Parallel()

	signer, err := NewSignerHS256([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	tokenStr, err := signer.Sign(testClaims(time.Minute))
	require.NoError(t, err)

	other := NewVerifierHS256([]byte("ffffffffffffffffffffffffffffffff"), "")
	_, err = other.Verify(tokenStr)
	require.Error(t, err)
}

func TestHS256RejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	signer, err := NewSignerHS256(secret)
	require.NoError(t, err)
	tokenStr, err := signer.Sign(testClaims(time.Minute))
	require.NoError(t, err)

	_, err = NewVerifierHS256(secret, "someone-else").Verify(tokenStr)
	require.Error(t, err)
}

func TestEdDSARoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := GenerateEdDSASigner()
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	require.Equal(t, "EdDSA", signer.Alg())

	tokenStr, err := signer.Sign(testClaims(time.Minute))
	require.NoError(t, err)

	claims, err := NewVerifierEdDSA(signer.Public(), "canopy-accounts").Verify(tokenStr)
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", claims.Email)

	// A token signed by another key must not verify.
	stranger, err := GenerateEdDSASigner()
	require.NoError(t, err)
	_, err = NewVerifierEdDSA(stranger.Public(), "").Verify(tokenStr)
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	signer, err := NewSignerHS256(secret)
	require.NoError(t, err)

	tokenStr, err := signer.Sign(testClaims(-time.Minute))
	require.NoError(t, err)

	_, err = NewVerifierHS256(secret, "").Verify(tokenStr)
	require.Error(t, err)
}
