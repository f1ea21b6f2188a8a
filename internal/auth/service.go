package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/tasknova/leadgen/internal/middleware"
	"github.com/tasknova/leadgen/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const tokenTTL = 24 * time.Hour

type Account struct {
	ID    uuid.UUID
	Email string
}

// AccountStore is the persistence the service needs; *Repository implements it.
type AccountStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, email, passwordHash string) (uuid.UUID, error)
	GetByEmail(ctx context.Context, email string) (*Account, string, error)
	RevokeToken(ctx context.Context, jti string, accountID uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	HasBusinessProfile(ctx context.Context, accountID uuid.UUID) (bool, error)
}

type ProfileCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Profile) error
}

// SessionPublisher is told when an account signs out so open streams can react.
type SessionPublisher interface {
	PublishSession(accountID uuid.UUID, state string)
}

type Service interface {
	Register(ctx context.Context, email, password, fullName string) (*Account, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (*middleware.Session, error)
	Logout(ctx context.Context, sess *middleware.Session) error
	HasBusinessProfile(ctx context.Context, accountID uuid.UUID) (bool, error)
}

type service struct {
	repo      AccountStore
	profiles  ProfileCreator
	publisher SessionPublisher
	secret    []byte
	now       func() time.Time
}

func NewService(repo AccountStore, profiles ProfileCreator, publisher SessionPublisher, secret string) *service {
	return &service{repo: repo, profiles: profiles, publisher: publisher, secret: []byte(secret), now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)
var _ middleware.SessionValidator = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Register creates the account and its profile in one transaction, so every
// account starts with free_leads_used = false.
func (s *service) Register(ctx context.Context, email, password, fullName string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	id, err := s.repo.CreateTx(ctx, tx, email, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	prof := &models.Profile{ID: id, Email: email}
	if name := strings.TrimSpace(fullName); name != "" {
		prof.FullName = &name
	}
	if err := s.profiles.CreateTx(ctx, tx, prof); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &Account{ID: id, Email: email}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	acc, hash, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if acc == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(acc.ID, acc.Email)
}

func (s *service) issueToken(userID uuid.UUID, email string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*middleware.Session, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.ID == "" {
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, err
	}
	revoked, err := s.repo.IsRevoked(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	sess := &middleware.Session{AccountID: id, Email: c.Email, TokenID: c.ID}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess, nil
}

// Logout revokes the session's token and notifies live streams.
func (s *service) Logout(ctx context.Context, sess *middleware.Session) error {
	if err := s.repo.RevokeToken(ctx, sess.TokenID, sess.AccountID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if s.publisher != nil {
		s.publisher.PublishSession(sess.AccountID, "signed_out")
	}
	return nil
}

func (s *service) HasBusinessProfile(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.repo.HasBusinessProfile(ctx, accountID)
}
