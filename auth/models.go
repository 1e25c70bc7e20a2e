package auth

import "time"

type Role string

const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Operator is the domain representation of a dashboard account.
// It mirrors the operators table and should not include JSON annotations so it
// can be reused by different presentation layers.
type Operator struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Phone        *string
	Zone         *string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains account registration data supplied by callers.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Zone     string `json:"zone"`
	Role     Role   `json:"role"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
