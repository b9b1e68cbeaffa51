package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/civichub/internal/domain/user"
	"github.com/geocoder89/civichub/internal/security"
	"github.com/go-playground/validator/v10"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, id string, p user.Patch) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) (bool, error)
	Burn(ctx context.Context, plain string) error
}

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

type Service struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	validate *validator.Validate
	log      *slog.Logger
}

func NewService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

type CreateAccountInput struct {
	FullName string `validate:"max=120"`
	NickName string `validate:"max=60"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
	Role     string `validate:"omitempty,alphanum,max=32"`
}

type UpdateAccountInput struct {
	FullName *string `validate:"omitempty,max=120"`
	NickName *string `validate:"omitempty,max=60"`
	Email    *string `validate:"omitempty,email,max=254"`
	Password *string `validate:"omitempty,min=1,max=72"`
	Role     *string `validate:"omitempty,alphanum,max=32"`
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      user.Summary
}

// CreateAccount hashes the password and stores a new user. The plaintext
// never reaches the store.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (user.Public, error) {
	in.Email = user.NormalizeEmail(in.Email)

	if err := s.check(in); err != nil {
		return user.Public{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return user.Public{}, s.hashFailure(err)
	}

	u, err := s.users.Create(ctx, user.New(in.FullName, in.NickName, in.Email, hash, in.Role))
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.Public{}, ErrEmailTaken
		}
		return user.Public{}, s.storageFailure(ctx, "create user", err)
	}

	s.log.InfoContext(ctx, "account_created", "user_id", u.ID, "role", u.Role)

	return u.Public(), nil
}

// Login checks the credentials and mints a session token. It performs reads
// only; nothing is written on success or failure.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = user.NormalizeEmail(email)

	if email == "" || password == "" {
		return LoginResult{}, &InputError{Fields: missingLoginFields(email, password)}
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// keep the unknown-account path as slow as a real comparison
			if burnErr := s.hasher.Burn(ctx, password); burnErr != nil {
				return LoginResult{}, burnErr
			}
			s.log.InfoContext(ctx, "login_failed", "reason", "unknown_email")
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, s.storageFailure(ctx, "lookup user", err)
	}

	ok, err := s.hasher.Verify(ctx, password, u.PasswordHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		s.log.InfoContext(ctx, "login_failed", "reason", "bad_password", "user_id", u.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      u.Summary(),
	}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (user.Public, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Public{}, ErrUserNotFound
		}
		return user.Public{}, s.storageFailure(ctx, "get user", err)
	}

	return u.Public(), nil
}

// UpdateUser applies a partial update. A supplied password is re-hashed so
// the stored hash always matches the latest plaintext.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateAccountInput) (user.Public, error) {
	if in.Email != nil {
		e := user.NormalizeEmail(*in.Email)
		in.Email = &e
	}

	if err := s.check(in); err != nil {
		return user.Public{}, err
	}

	p := user.Patch{
		FullName: in.FullName,
		NickName: in.NickName,
		Email:    in.Email,
		Role:     in.Role,
	}

	if in.Password != nil {
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			return user.Public{}, s.hashFailure(err)
		}
		p.PasswordHash = &hash
	}

	u, err := s.users.Update(ctx, id, p)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return user.Public{}, ErrUserNotFound
		case errors.Is(err, user.ErrEmailTaken):
			return user.Public{}, ErrEmailTaken
		}
		return user.Public{}, s.storageFailure(ctx, "update user", err)
	}

	s.log.InfoContext(ctx, "account_updated", "user_id", u.ID, "password_changed", in.Password != nil)

	return u.Public(), nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return s.storageFailure(ctx, "delete user", err)
	}

	s.log.InfoContext(ctx, "account_deleted", "user_id", id)

	return nil
}

// EnsureAdmin creates the bootstrap admin account unless the email is
// already registered. Empty credentials disable seeding.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, fullName string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return s.storageFailure(ctx, "lookup admin", err)
	}

	_, err = s.CreateAccount(ctx, CreateAccountInput{
		FullName: fullName,
		NickName: "admin",
		Email:    email,
		Password: password,
		Role:     user.RoleAdmin,
	})
	if errors.Is(err, ErrEmailTaken) {
		// raced with another instance
		return nil
	}

	return err
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: lowerFirst(fe.Field()), Rule: fe.Tag(), Param: fe.Param()})
	}

	return &InputError{Fields: fields}
}

func (s *Service) hashFailure(err error) error {
	switch {
	case errors.Is(err, security.ErrEmptyPassword):
		return &InputError{Fields: []FieldError{{Field: "password", Rule: "required"}}}
	case errors.Is(err, security.ErrPasswordTooLong):
		return &InputError{Fields: []FieldError{{Field: "password", Rule: "max", Param: "72"}}}
	}
	return fmt.Errorf("hash password: %w", err)
}

// storageFailure logs the underlying error and hands back a redacted one.
func (s *Service) storageFailure(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	s.log.ErrorContext(ctx, "storage_failure", "op", op, "err", err)

	return fmt.Errorf("%w: %s", ErrStorage, op)
}

func missingLoginFields(email, password string) []FieldError {
	var fields []FieldError
	if email == "" {
		fields = append(fields, FieldError{Field: "email", Rule: "required"})
	}
	if password == "" {
		fields = append(fields, FieldError{Field: "password", Rule: "required"})
	}
	return fields
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
