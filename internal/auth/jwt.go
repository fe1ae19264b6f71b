package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DeviceTokenTTL is how long a bound device stays signed in.
const DeviceTokenTTL = 12 * time.Hour

var ErrMalformedCode = errors.New("malformed device code")

// Claims bind a POS or kitchen device to one institution. BranchID is
// uuid.Nil when the code is not tied to a branch.
type Claims struct {
	InstitutionID uuid.UUID `json:"institution_id"`
	BranchID      uuid.UUID `json:"branch_id"`
	Role          string    `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, institutionID, branchID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		InstitutionID: institutionID,
		BranchID:      branchID,
		Role:          role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   institutionID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.InstitutionID == uuid.Nil {
		return nil, fmt.Errorf("token has no institution")
	}
	return claims, nil
}

// SplitCode splits a device code of the form PREFIX-SECRET. The prefix is
// stored in clear for lookup; the whole code is hashed.
func SplitCode(code string) (prefix string, err error) {
	prefix, secret, ok := strings.Cut(strings.TrimSpace(code), "-")
	if !ok || prefix == "" || secret == "" {
		return "", ErrMalformedCode
	}
	return strings.ToUpper(prefix), nil
}

func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(code)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(code))) == nil
}
