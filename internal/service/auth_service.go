package service

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"bookstore-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *entity.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) (bool, error)
}

type TokenIssuer interface {
	Issue(userID int64, username string, role entity.Role) (string, error)
}

// AuthService registers customers and logs users in.
type AuthService struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewAuthService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a customer account. The username is trimmed and the email is
// trimmed and lowercased before any check, so emails are unique regardless of case.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" || email == "" || in.Password == "" {
		return nil, validationError("Missing required fields")
	}
	if len(username) < minUsernameLength {
		return nil, validationError("Username must be at least %d characters", minUsernameLength)
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationError("Password must be at least %d characters", minPasswordLength)
	}

	existing, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, dependencyError("Registration failed", err)
	}
	if existing != nil {
		return nil, conflictError("Username already exists")
	}
	existing, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, dependencyError("Registration failed", err)
	}
	if existing != nil {
		return nil, conflictError("Email already exists")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, dependencyError("Registration failed", err)
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleCustomer,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		// lost a race against a concurrent registration
		if isDuplicateEntry(err) {
			return nil, conflictError("Username or email already exists")
		}
		logger.Error().Err(err).Str("username", username).Msg("Error creating user")
		return nil, dependencyError("Registration failed", err)
	}
	user.ID = id

	logger.Info().Int64("user_id", id).Str("username", username).Msg("User registered")
	return user, nil
}

type LoginResult struct {
	Token string
	User  *entity.User
}

// Login never tells the caller whether the username or the password was wrong.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validationError("Missing username or password")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, dependencyError("Login failed", err)
	}
	if user == nil {
		return nil, authenticationError("Invalid username or password")
	}

	ok, err := s.hasher.Check(password, user.PasswordHash)
	if err != nil {
		logger.Warn().Err(err).Int64("user_id", user.ID).Msg("Stored password hash is unreadable")
		return nil, authenticationError("Invalid username or password")
	}
	if !ok {
		return nil, authenticationError("Invalid username or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, dependencyError("Login failed", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}
