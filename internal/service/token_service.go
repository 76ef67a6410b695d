package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"warbler/internal/cache"
	"warbler/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TokenIssuer   = "warbler-api"
	TokenAudience = "warbler-client"
	TokenTTL      = 7 * 24 * time.Hour
)

// TokenClaims is the subset of JWT claims the server relies on.
type TokenClaims struct {
	UserID    uint
	ID        string
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 bearer tokens. Revoked token IDs
// are kept in Redis until the token would have expired.
type TokenService struct {
	secret []byte
	redis  *redis.Client
	now    func() time.Time
}

// NewTokenService creates a TokenService. rdb may be nil, in which case
// revocation is unavailable and every well-formed token is accepted.
func NewTokenService(secret string, rdb *redis.Client) *TokenService {
	return &TokenService{secret: []byte(secret), redis: rdb, now: time.Now}
}

// Issue creates a signed token for user.
func (s *TokenService) Issue(user *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      now.Add(TokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates signature, issuer, audience and expiry, then checks the
// revocation list.
func (s *TokenService) Parse(ctx context.Context, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.NewUnauthorizedError("Invalid expiration claim")
	}

	jti, _ := claims["jti"].(string)
	if jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, cache.BlacklistKey(jti)).Result()
		if err == nil && revoked > 0 {
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	return &TokenClaims{UserID: uint(userID), ID: jti, ExpiresAt: exp.Time}, nil
}

// Revoke blacklists the token ID until expiresAt.
func (s *TokenService) Revoke(ctx context.Context, claims *TokenClaims) error {
	if claims == nil || claims.ID == "" || s.redis == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err()
}
