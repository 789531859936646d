package trust

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
)

// tokenClaims carry enough context for the resolve callback to be
// self-authenticating: the player, the candidate fingerprint being approved,
// and a unique ID matched against the pending entry.
type tokenClaims struct {
	PlayerID    string `json:"player_id"`
	CandidateFP string `json:"candidate_fp"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates approval correlation tokens (HS256).
type TokenIssuer struct {
	signingKey []byte
}

func NewTokenIssuer(signingKey string) *TokenIssuer {
	return &TokenIssuer{signingKey: []byte(signingKey)}
}

// Issue returns the signed token and its unique ID.
func (t *TokenIssuer) Issue(playerID, candidateFP string, ttl time.Duration) (token, jti string, err error) {
	jti = uuid.NewString()
	claims := tokenClaims{
		PlayerID:    playerID,
		CandidateFP: candidateFP,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "pl18-trust",
			ID:        jti,
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signingKey)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

// Validate parses a correlation token and returns its claims.
func (t *TokenIssuer) Validate(token string) (playerID, candidateFP, jti string, err error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return t.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", "", dErrors.New(dErrors.CodeApprovalTimeout, "approval link has expired")
		}
		return "", "", "", dErrors.New(dErrors.CodeUnauthorized, "invalid approval token")
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return "", "", "", dErrors.New(dErrors.CodeUnauthorized, "invalid approval token")
	}
	return claims.PlayerID, claims.CandidateFP, claims.ID, nil
}
