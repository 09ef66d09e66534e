package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtIssuer   = "focusflow"
	jwtAudience = "focusflow-clients"

	// TokenTTL is how long an issued token stays valid.
	TokenTTL = 24 * time.Hour
)

var (
	ErrDisabled           = errors.New("authentication is disabled")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Settings configures the single account allowed to use the API.
type Settings struct {
	Secret       string
	Username     string
	PasswordHash string
}

var (
	mu       sync.RWMutex
	settings Settings
)

// Configure installs the signing secret and the account. An empty secret
// disables authentication.
func Configure(s Settings) {
	mu.Lock()
	defer mu.Unlock()
	settings = s
}

// Enabled reports whether a signing secret is configured.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return settings.Secret != ""
}

func current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return settings
}

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken issues a token for username.
func GenerateToken(username string) (string, error) {
	s := current()
	if s.Secret == "" {
		return "", ErrDisabled
	}

	issued := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(issued.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			Issuer:    jwtIssuer,
			Audience:  jwt.ClaimStrings{jwtAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Secret))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	s := current()
	if s.Secret == "" {
		return nil, ErrDisabled
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.Secret), nil
	}, jwt.WithIssuer(jwtIssuer), jwt.WithAudience(jwtAudience))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Login checks the credentials against the configured account and returns a token.
func Login(username, password string) (string, error) {
	s := current()
	if s.Secret == "" {
		return "", ErrDisabled
	}
	if username != s.Username || s.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return GenerateToken(username)
}

// HashPassword returns the bcrypt hash to put in auth.password_hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
