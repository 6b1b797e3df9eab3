package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/strokecare/api/internal/platform/errs"
	"github.com/strokecare/api/internal/platform/validate"
)

// bcryptCost matches the hashing work factor the account store has always
// used; existing hashes verify regardless of cost.
const bcryptCost = 12

const resetTokenTTL = time.Hour

// Service manages user accounts on top of a Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateParams carries the caller-supplied fields for a new account.
type CreateParams struct {
	Username       string
	Email          string
	Password       string
	Role           string
	FirstName      string
	LastName       string
	Phone          string
	Specialization string
	LicenseNumber  string
}

// Create validates, hashes the password, and persists a new account.
// Returns errs.ErrDuplicateKey when username or email is taken.
func (s *Service) Create(ctx context.Context, p CreateParams) (*User, error) {
	var problems []string
	if p.Username == "" {
		problems = append(problems, "username is required")
	}
	if !validate.Email(p.Email) {
		problems = append(problems, "invalid email format")
	}
	if ok, msg := validate.Password(p.Password); !ok {
		problems = append(problems, msg)
	}
	if !ValidRole(p.Role) {
		problems = append(problems, "role must be admin, doctor, or patient")
	}
	if p.FirstName == "" || p.LastName == "" {
		problems = append(problems, "first_name and last_name are required")
	}
	if len(problems) > 0 {
		return nil, errs.Validation(problems...)
	}

	u := &User{
		Username:  validate.Sanitize(p.Username),
		Email:     validate.Sanitize(p.Email),
		Role:      p.Role,
		FirstName: validate.Sanitize(p.FirstName),
		LastName:  validate.Sanitize(p.LastName),
		IsActive:  true,
	}
	if p.Phone != "" {
		phone := validate.Sanitize(p.Phone)
		u.Phone = &phone
	}
	// Doctor-only profile fields.
	if p.Role == RoleDoctor {
		if p.Specialization != "" {
			spec := validate.Sanitize(p.Specialization)
			u.Specialization = &spec
		}
		if p.LicenseNumber != "" {
			lic := validate.Sanitize(p.LicenseNumber)
			u.LicenseNumber = &lic
		}
	}

	if err := s.setPasswordHash(u, p.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.FindByUsername(ctx, username)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context, roleFilter string) ([]*User, error) {
	return s.repo.FindAll(ctx, roleFilter)
}

func (s *Service) Update(ctx context.Context, u *User) error {
	return s.repo.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) CountByRole(ctx context.Context, role string) (int, error) {
	return s.repo.CountByRole(ctx, role)
}

// SetPassword hashes the plaintext with bcrypt and persists the new hash.
// The plaintext is never stored or logged.
func (s *Service) SetPassword(ctx context.Context, u *User, plaintext string) error {
	if ok, msg := validate.Password(plaintext); !ok {
		return errs.Validation(msg)
	}
	if err := s.setPasswordHash(u, plaintext); err != nil {
		return err
	}
	return s.repo.Update(ctx, u)
}

func (s *Service) setPasswordHash(u *User, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword compares the plaintext against the stored hash. bcrypt's
// comparison is constant-time over the hash.
func (s *Service) VerifyPassword(u *User, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

// RequestPasswordReset issues a single-use reset credential for the email
// and returns its token. Returns errs.ErrNotFound for unknown emails; the
// handler hides that distinction from the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if _, err := s.repo.FindByEmail(ctx, email); err != nil {
		return "", err
	}
	reset := &PasswordReset{
		Token:     uuid.NewString(),
		Email:     email,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.repo.CreatePasswordReset(ctx, reset); err != nil {
		return "", err
	}
	return reset.Token, nil
}

// ResetPassword consumes the token and sets the new password. The consume
// is atomic, so a token redeems at most once.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if ok, msg := validate.Password(newPassword); !ok {
		return errs.Validation(msg)
	}
	reset, err := s.repo.ConsumePasswordReset(ctx, token)
	if err != nil {
		return err
	}
	u, err := s.repo.FindByEmail(ctx, reset.Email)
	if err != nil {
		return err
	}
	if err := s.setPasswordHash(u, newPassword); err != nil {
		return err
	}
	return s.repo.Update(ctx, u)
}
