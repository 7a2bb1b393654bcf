package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderExtractor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "system", HeaderExtractor{}.Extract(r))

	r.Header.Set(ActorHeader, "alice")
	assert.Equal(t, "alice", HeaderExtractor{}.Extract(r))
}

func TestJWTExtractor_Unverified(t *testing.T) {
	// No public key configured: tokens are parsed without verification.
	extractor, err := NewJWTExtractor(JWTExtractorConfig{})
	require.NoError(t, err)

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	createToken := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		s, err := token.SignedString(privateKey)
		require.NoError(t, err)
		return s
	}

	t.Run("subject claim", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+createToken(jwt.MapClaims{
			"sub": "alice@example.com",
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		assert.Equal(t, "alice@example.com", extractor.Extract(r))
	})

	t.Run("custom subject claim", func(t *testing.T) {
		custom, err := NewJWTExtractor(JWTExtractorConfig{SubjectClaim: "email"})
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+createToken(jwt.MapClaims{
			"sub":   "ignored",
			"email": "bob@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		}))
		assert.Equal(t, "bob@example.com", custom.Extract(r))
	})

	t.Run("missing claim falls back to header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+createToken(jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		r.Header.Set(ActorHeader, "carol")
		assert.Equal(t, "carol", extractor.Extract(r))
	})

	t.Run("garbage token falls back", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		assert.Equal(t, "system", extractor.Extract(r))
	})

	t.Run("no bearer prefix falls back", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		assert.Equal(t, "system", extractor.Extract(r))
	})
}

func TestJWTExtractor_Verified(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	// Write the public key as PEM to a temp file.
	pubDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "jwt.pub")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(keyPath, pemData, 0o600))

	extractor, err := NewJWTExtractor(JWTExtractorConfig{
		PublicKeyPath: keyPath,
		Issuer:        "sds-registry",
	})
	require.NoError(t, err)

	sign := func(key *rsa.PrivateKey, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	t.Run("valid signature and issuer", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+sign(privateKey, jwt.MapClaims{
			"sub": "alice",
			"iss": "sds-registry",
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		assert.Equal(t, "alice", extractor.Extract(r))
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+sign(otherKey, jwt.MapClaims{
			"sub": "mallory",
			"iss": "sds-registry",
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		assert.Equal(t, "system", extractor.Extract(r))
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+sign(privateKey, jwt.MapClaims{
			"sub": "alice",
			"iss": "someone-else",
			"exp": time.Now().Add(time.Hour).Unix(),
		}))
		assert.Equal(t, "system", extractor.Extract(r))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+sign(privateKey, jwt.MapClaims{
			"sub": "alice",
			"iss": "sds-registry",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}))
		assert.Equal(t, "system", extractor.Extract(r))
	})
}

func TestNewJWTExtractor_BadKeyFile(t *testing.T) {
	_, err := NewJWTExtractor(JWTExtractorConfig{PublicKeyPath: "/no/such/key.pem"})
	assert.Error(t, err)

	badPath := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(badPath, []byte("not a pem"), 0o600))
	_, err = NewJWTExtractor(JWTExtractorConfig{PublicKeyPath: badPath})
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	var seen string
	handler := Middleware(HeaderExtractor{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFromContext(r.Context())
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(ActorHeader, "alice")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, "alice", seen)
}
