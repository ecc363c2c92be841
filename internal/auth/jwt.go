package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles issued by the auth provider.
const (
	RoleAdmin      = "admin"
	RoleGroupAdmin = "group_admin"
	RoleUser       = "user"
)

// Claims is the decoded identity attached to a request. Pages is the list
// of page keys the user may access; admins implicitly have all of them.
type Claims struct {
	UserID string
	Email  string
	Role   string
	Pages  []string
}

// HasPage reports whether the user may access the given page key.
func (c *Claims) HasPage(page string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	for _, p := range c.Pages {
		if p == page {
			return true
		}
	}
	return false
}

// TokenManager issues and validates HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate issues a signed token for the given identity.
func (m *TokenManager) Generate(userID, email, role string, pages []string) (string, error) {
	if userID == "" {
		return "", errors.New("empty userID passed to Generate")
	}

	claims := jwt.MapClaims{
		"userID": userID,
		"email":  email,
		"role":   role,
		"pages":  pages,
		"exp":    time.Now().Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a token, returning the identity it carries.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	claims := &Claims{}
	claims.UserID, _ = mapClaims["userID"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	claims.Role, _ = mapClaims["role"].(string)

	if raw, ok := mapClaims["pages"].([]interface{}); ok {
		for _, p := range raw {
			if page, ok := p.(string); ok {
				claims.Pages = append(claims.Pages, page)
			}
		}
	}

	if claims.UserID == "" {
		return nil, errors.New("token missing user id")
	}

	return claims, nil
}
