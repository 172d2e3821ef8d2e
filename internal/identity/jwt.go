package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTCfg configures access-token issuance and verification. Previously
// only upstream-issued tokens were verified (JWKS RS256 + HS256 dev secret);
// this service also issues its own tokens, so HS256 is the sole signing
// method here (a stateless, self-contained token signed with the
// server's own key), keeping the same claim shape and context-key
// accessor pattern as before.
type JWTCfg struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type accessClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// IssueAccessToken mints a short-lived, stateless access token carrying
// {user_id, issued_at, expires_at, type=access}.
func IssueAccessToken(cfg JWTCfg, userID int64, now time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
		TokenType: "access",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(cfg.Secret))
}

// ValidateAccessToken verifies signature and expiry and returns the user ID.
// Revocation before expiry is not supported: callers
// needing revocation rely on short TTL plus refresh-token revocation.
func ValidateAccessToken(cfg JWTCfg, tokenString string) (int64, error) {
	claims := &accessClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, fmt.Errorf("jwt validation failed: %w", err)
	}
	if claims.TokenType != "access" {
		return 0, fmt.Errorf("not an access token")
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return 0, fmt.Errorf("malformed subject claim: %w", err)
	}
	return userID, nil
}
