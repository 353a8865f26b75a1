package staff

import "time"

// Account represents an admin or warehouse operator.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // admin | warehouse
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the body for POST /staff/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the body for POST /staff/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account,omitempty"`
}
