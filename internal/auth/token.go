package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/creative-board/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens. Sign-in happens in
// an external identity service; tokens minted here serve tooling and tests.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, issuer string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		now:    time.Now,
	}
}

// Claims describes JWT payload: who is acting and on which company's board.
type Claims struct {
	Kind      domain.ActorKind   `json:"kind"`
	CompanyID string             `json:"company_id"`
	Role      domain.CompanyRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the board actor.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{
		ID:        c.Subject,
		Kind:      c.Kind,
		CompanyID: c.CompanyID,
		Role:      domain.ParseCompanyRole(string(c.Role)),
	}
}

// GenerateToken builds and signs a JWT for the actor.
func (tm *TokenManager) GenerateToken(actor domain.Actor) (string, time.Time, error) {
	if strings.TrimSpace(actor.ID) == "" || strings.TrimSpace(actor.CompanyID) == "" {
		return "", time.Time{}, errors.New("actor id and company id are required")
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		Kind:      actor.Kind,
		CompanyID: actor.CompanyID,
		Role:      actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || claims.CompanyID == "" {
		return nil, errors.New("token is missing actor or company")
	}
	return claims, nil
}
