package domain

import "errors"

// Role is the access level carried by an API token.
type Role string

const (
	// RoleAdmin has full access
	RoleAdmin Role = "admin"

	// RoleOperator can deposit, withdraw and convert
	RoleOperator Role = "operator"

	// RoleViewer can only read balances and lots
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleViewer:   true,
}

// IsValid checks if the role is a known role.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanMutate checks if the role may change the ledger.
func (r Role) CanMutate() bool {
	return r == RoleAdmin || r == RoleOperator
}

// CanView checks if the role may read the ledger.
func (r Role) CanView() bool {
	return r.IsValid()
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
