package identity

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ActorHeader is the trusted-proxy header carrying the actor identity.
const ActorHeader = "X-Actor-ID"

// Extractor resolves the actor identity from an HTTP request.
type Extractor interface {
	Extract(r *http.Request) string
}

// HeaderExtractor reads the actor from the X-Actor-ID header.
// Missing headers resolve to "system".
type HeaderExtractor struct{}

// Extract returns the header value, or "system" when absent.
func (HeaderExtractor) Extract(r *http.Request) string {
	if actor := r.Header.Get(ActorHeader); actor != "" {
		return actor
	}
	return "system"
}

// JWTExtractorConfig configures the JWT-based actor extractor.
type JWTExtractorConfig struct {
	// SubjectClaim is the JWT claim containing the actor identity.
	// Default: "sub"
	SubjectClaim string

	// PublicKeyPath is the path to the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified (suitable
	// for dev/testing behind trusted proxies).
	PublicKeyPath string

	// Issuer is the expected token issuer (iss claim). If empty, issuer is
	// not validated.
	Issuer string

	// Logger for debugging. If nil, uses slog.Default().
	Logger *slog.Logger
}

// JWTExtractor reads the actor from a JWT Bearer token in the Authorization
// header, falling back to the X-Actor-ID header and then "system".
type JWTExtractor struct {
	cfg       JWTExtractorConfig
	publicKey *rsa.PublicKey
}

// NewJWTExtractor creates an Extractor that reads the actor from JWT Bearer
// tokens.
//
// Security model:
//   - If PublicKeyPath is set, tokens are cryptographically verified (RS256)
//   - If PublicKeyPath is empty, tokens are parsed without verification
//     (trusted proxy mode)
//   - Missing or invalid tokens fall back to the header extractor
func NewJWTExtractor(cfg JWTExtractorConfig) (*JWTExtractor, error) {
	if cfg.SubjectClaim == "" {
		cfg.SubjectClaim = "sub"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT public key from %s: %w", cfg.PublicKeyPath, err)
		}
		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("failed to decode PEM block from %s", cfg.PublicKeyPath)
		}
		parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JWT public key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("JWT public key is not RSA (got %T)", parsedKey)
		}
		publicKey = rsaKey
	}

	return &JWTExtractor{cfg: cfg, publicKey: publicKey}, nil
}

// Extract resolves the actor from the request's bearer token.
func (e *JWTExtractor) Extract(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return HeaderExtractor{}.Extract(r)
	}
	tokenString := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.MapClaims{}
	var err error
	if e.publicKey != nil {
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
		if e.cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(e.cfg.Issuer))
		}
		_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			return e.publicKey, nil
		}, opts...)
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
	}
	if err != nil {
		e.cfg.Logger.Debug("failed to parse bearer token", "error", err)
		return HeaderExtractor{}.Extract(r)
	}

	if sub, ok := claims[e.cfg.SubjectClaim].(string); ok && sub != "" {
		return sub
	}
	return HeaderExtractor{}.Extract(r)
}

// Middleware returns HTTP middleware that resolves the actor using the given
// Extractor and stores it in the request context.
func Middleware(extractor Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithActor(r.Context(), extractor.Extract(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
