package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// Identity is the display subset of the ID token claims.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// IdentityClaims decodes the stored ID token without verifying it. The
// result is for display only and must not drive authorization.
func IdentityClaims(r *Record) (*Identity, error) {
	if r == nil || !utils.HasValue(r.IDToken) {
		return nil, fmt.Errorf("[session IdentityClaims] no id token: %w", autherrors.ErrNotFound)
	}
	var id Identity
	if _, _, err := jwt.NewParser().ParseUnverified(*r.IDToken, &id); err != nil {
		return nil, fmt.Errorf("[session IdentityClaims] %w: %v", autherrors.ErrInvalidToken, err)
	}
	return &id, nil
}
