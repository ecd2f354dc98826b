package jwtx

// Signer is anything that can sign access-token claims into a compact
// JWT string.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// Verifier checks a compact JWT string and returns its claims.
type Verifier interface {
	Verify(tokenStr string) (*Claims, error)
}

// NewSignerHS256 creates an HMAC-SHA256 signer. The secret must be at
// least 32 bytes.
func NewSignerHS256(secret []byte) (Signer, error) {
	return newHS256Signer(secret)
}

// NewSignerEdDSA creates an Ed25519 signer from PKCS8 PEM bytes.
func NewSignerEdDSA(pemKey []byte) (Signer, error) {
	return newEdDSASigner(pemKey)
}
