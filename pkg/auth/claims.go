package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/bitedash/bitedash-backend/pkg/enums"
)

// AccessTokenPayload carries the identity minted into an access token.
type AccessTokenPayload struct {
	UserID         int64
	OrganizationID int64
	Role           enums.ActorRole
	JTI            string
}

// AccessTokenClaims is the JWT claim set used across the platform. The actor
// id and role travel in the token so handlers can pass them down explicitly
// instead of reading ambient request state.
type AccessTokenClaims struct {
	UserID         int64           `json:"uid"`
	OrganizationID int64           `json:"org"`
	Role           enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
