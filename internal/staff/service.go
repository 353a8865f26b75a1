package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"freight-service/internal/apperrors"
	"freight-service/pkg/jwt"
	"freight-service/pkg/validation"
)

// Service contains staff account logic.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a staff service backed by the given pool.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Register creates a new admin or warehouse account and returns a JWT.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.Role != jwt.RoleAdmin && req.Role != jwt.RoleWarehouse {
		return nil, apperrors.Validationf("role must be admin or warehouse")
	}
	if !validation.ValidateName(req.Name) || !validation.ValidateEmail(req.Email) {
		return nil, apperrors.Validationf("name and a valid email are required")
	}
	if !validation.ValidatePassword(req.Password) {
		return nil, apperrors.Validationf("password must be 6-100 characters")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM staff WHERE email=$1)", req.Email).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New("email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(ctx,
		`INSERT INTO staff (id,name,email,phone,password_hash,role) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, req.Name, req.Email, req.Phone, string(hash), req.Role)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Generate(id, req.Email, req.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:   token,
		Account: &Account{ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone, Role: req.Role},
	}, nil
}

// Login authenticates a staff account and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var a Account
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,password_hash,role,created_at FROM staff WHERE email=$1`,
		req.Email).Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.PasswordHash, &a.Role, &a.CreatedAt)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.New("invalid credentials")
	}

	token, err := jwt.Generate(a.ID, a.Email, a.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Account: &a}, nil
}

// GetByID fetches a single account by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*Account, error) {
	var a Account
	err := s.db.QueryRow(ctx,
		`SELECT id,name,email,phone,role,created_at FROM staff WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Role, &a.CreatedAt)
	if err != nil {
		return nil, apperrors.NotFoundf("staff account %s", id)
	}
	return &a, nil
}
