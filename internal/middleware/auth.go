package middleware

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/openlobby/lobby-service/internal/models"
)

const (
	identityKey = "identity"
	tokenIssuer = "login-api"
)

// Claims are the RS256 token claims minted by the external auth
// service. The subject is the user id.
type Claims struct {
	Name     string   `json:"name"`
	ImageURL string   `json:"imageUrl"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier validates tokens against the auth service's public key. The
// key is fetched once and cached for the life of the process; rotation
// is the auth service's concern, not ours.
type Verifier struct {
	authServiceURL string
	http           *http.Client

	mu  sync.Mutex
	key *rsa.PublicKey
}

func NewVerifier(authServiceURL string) *Verifier {
	return &Verifier{
		authServiceURL: authServiceURL,
		http:           &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) publicKey() (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != nil {
		return v.key, nil
	}

	resp, err := v.http.Get(v.authServiceURL + "/auth/public-key")
	if err != nil {
		return nil, fmt.Errorf("auth service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service returned %d", resp.StatusCode)
	}

	var body struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode public key response: %w", err)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(body.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	v.key = key
	return key, nil
}

// Verify parses and validates a token, returning the caller identity.
func (v *Verifier) Verify(tokenString string) (models.Identity, error) {
	key, err := v.publicKey()
	if err != nil {
		return models.Identity{}, err
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	isAdmin := false
	for _, role := range claims.Roles {
		if role == "admin" {
			isAdmin = true
			break
		}
	}
	return models.Identity{
		ID:       claims.Subject,
		Name:     claims.Name,
		ImageURL: claims.ImageURL,
		IsAdmin:  isAdmin,
	}, nil
}

// Auth is the gin middleware guarding the room API. It places the
// verified identity in the request context.
func (v *Verifier) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		ident, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// TokenFromRequest extracts the bearer token. WebSocket handshakes may
// carry it as a query parameter instead of a header.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if parts := strings.Split(header, " "); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return r.URL.Query().Get("token")
}

// IdentityFrom returns the identity the Auth middleware stored.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	ident, ok := val.(models.Identity)
	return ident, ok
}
