package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/rs/zerolog/log"

	"github.com/oki-dokii/FlowSpaceE/internal/models"
)

var (
	logger = log.With().Str("component", "auth").Logger()
)

const (
	keyUserID   = "auth.user_id"
	keyUsername = "auth.username"
)

type AuthConfig struct {
	// PEM encoded RSA private key used to sign and verify access tokens.
	PrivateKeyPEM string `yaml:"private_key_pem"`

	Issuer string `yaml:"issuer"`

	// Access token lifetime in seconds.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

func (c *AuthConfig) Validate() {
	if c.PrivateKeyPEM == "" {
		logger.Fatal().Msg("auth.private_key_pem is missing")
	}
	if c.Issuer == "" {
		logger.Fatal().Msg("auth.issuer is missing")
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 3600
	}
}

// Auth signs access tokens for the login flow and verifies them on every
// request. The bearer identity it extracts is the only notion of
// "current user" in the service; handlers read it from the gin context.
type Auth struct {
	config     *AuthConfig
	privateKey jwk.Key
	publicKey  jwk.Key
}

func NewAuth(config *AuthConfig) *Auth {
	priv, err := jwk.ParseKey([]byte(config.PrivateKeyPEM), jwk.WithPEM(true))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse private key")
	}

	pub, err := priv.PublicKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to generate public key")
	}

	return &Auth{
		config:     config,
		privateKey: priv,
		publicKey:  pub,
	}
}

func (a *Auth) AccessTokenTTL() int {
	return a.config.AccessTokenTTL
}

// SignAccessToken issues an RS256 access token for the user. Subject is
// the numeric user id.
func (a *Auth) SignAccessToken(user *models.User) (string, error) {
	token, err := jwt.NewBuilder().
		Issuer(a.config.Issuer).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Duration(a.config.AccessTokenTTL) * time.Second)).
		Subject(strconv.FormatUint(uint64(user.ID), 10)).
		Claim("username", user.Username).
		Claim("name", user.Name).
		Build()

	if err != nil {
		return "", fmt.Errorf("failed to build access token claims: %v", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), a.privateKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %v", err)
	}

	return string(signed), nil
}

// Middleware rejects requests without a valid bearer token and records
// the caller's identity in the context.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing authorization"})
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization format"})
			return
		}

		verified, err := jwt.Parse([]byte(parts[1]), jwt.WithKey(jwa.RS256(), a.publicKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		iss, ok := verified.Issuer()
		if !ok || iss != a.config.Issuer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		sub, ok := verified.Subject()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}
		userID, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		var username string
		_ = verified.Get("username", &username)

		c.Set(keyUserID, uint(userID))
		c.Set(keyUsername, username)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's id. The bool is false
// on routes that skipped the auth middleware.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(keyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func CurrentUsername(c *gin.Context) string {
	return c.GetString(keyUsername)
}
