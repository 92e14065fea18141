package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims issued to a signed-in account.
// The token only identifies the account; admin and blocked flags are always
// re-read from the account store when the token is presented.
type Payload struct {
	jwt.StandardClaims

	// ID is the account identifier (UUID string).
	ID string `json:"id"`

	// Username is informational; it is never trusted for authorization.
	Username string `json:"username,omitempty"`
}
