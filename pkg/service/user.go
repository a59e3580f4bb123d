package service

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/scrypt"

	"github.com/mocknest/mocknest/internal/id"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/store"
)

// uidSeed is the first public user id handed out on a fresh store.
const uidSeed = 10000

// scrypt parameters for password hashing.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
)

// Account-surface errors, reported to callers as business codes.
var (
	// ErrInvalidCredentials covers both unknown account and wrong
	// password, deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountDisabled is returned for a valid login against a
	// disabled account.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrUsernameTaken and ErrEmailTaken report registration
	// conflicts.
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already registered")
)

// UserService manages accounts: registration, login, lookup.
type UserService struct {
	store store.Store
	log   *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(st store.Store, log *slog.Logger) *UserService {
	return &UserService{store: st, log: log}
}

// HashPassword derives a scrypt hash and encodes it as salt:hash hex.
func HashPassword(password string) (string, error) {
	salt, err := id.Bytes(16)
	if err != nil {
		return "", err
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword checks a password against a salt:hash encoded value.
// Any malformed stored value verifies false rather than erroring.
func VerifyPassword(password, stored string) bool {
	saltHex, hashHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}
	got, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// RegisterParams are the register form fields.
type RegisterParams struct {
	Username string
	Email    string
	Password string
	Nickname string
	Phone    string
}

// Register validates the form, allocates a public uid (max+1 over
// existing uids, seeded at 10000, retried on collision like the
// project allocator), and stores the account with role "user".
func (s *UserService) Register(ctx context.Context, params RegisterParams) (*model.User, error) {
	username := strings.TrimSpace(params.Username)
	email := strings.TrimSpace(params.Email)
	if err := model.ValidateRegistration(username, email, params.Password); err != nil {
		return nil, err
	}

	if existing, err := s.store.FindUserByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.store.FindUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	for attempt := 0; attempt <= maxAllocateAttempts; attempt++ {
		max, err := s.store.MaxUserUID(ctx)
		if err != nil {
			return nil, fmt.Errorf("read max uid: %w", err)
		}
		uid := int64(uidSeed)
		if max > 0 {
			uid = max + 1
		}

		u := &model.User{
			UID:      uid,
			Username: username,
			Email:    email,
			Password: hashed,
			Nickname: params.Nickname,
			Phone:    params.Phone,
			Role:     model.RoleUser,
			Status:   model.StatusActive,
		}
		err = s.store.CreateUser(ctx, u)
		if err == nil {
			s.log.Info("user registered", "uid", uid, "username", username)
			return u, nil
		}
		if errors.Is(err, store.ErrDuplicate) {
			// Either a uid race or a username/email created in the
			// window since the pre-checks; re-check so the caller
			// gets the right conflict.
			if existing, lerr := s.store.FindUserByUsername(ctx, username); lerr == nil && existing != nil {
				return nil, ErrUsernameTaken
			}
			if existing, lerr := s.store.FindUserByEmail(ctx, email); lerr == nil && existing != nil {
				return nil, ErrEmailTaken
			}
			continue
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return nil, ErrAllocationExhausted
}

// Login verifies credentials by username or email, checks account
// status, and records the login time. On success it returns the
// account.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (*model.User, error) {
	u, err := s.store.FindUserByUsername(ctx, usernameOrEmail)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u, err = s.store.FindUserByEmail(ctx, usernameOrEmail)
		if err != nil {
			return nil, err
		}
	}
	if u == nil || !VerifyPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}
	if u.Status != model.StatusActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	u.LastLoginAt = &now
	if err := s.store.SaveUser(ctx, u); err != nil {
		// A failed login-time update should not block the login.
		s.log.Warn("update last login failed", "uid", u.UID, "error", err)
	}
	s.log.Info("user logged in", "uid", u.UID)
	return u, nil
}

// GetByID returns an account by internal key, or nil if absent.
func (s *UserService) GetByID(ctx context.Context, internalID uint) (*model.User, error) {
	return s.store.GetUser(ctx, internalID)
}
