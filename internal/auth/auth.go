// Package auth logs in against the backend and gates operations on the
// stored session.
package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/models"
	"github.com/jefrnc/stratlab/internal/session"
)

var (
	ErrNotLoggedIn     = errors.New("ログインが必要です")
	ErrNotAdmin        = errors.New("管理者権限が必要です")
	ErrEmptyCredential = errors.New("identity provider credential is empty")
)

// CredentialSource yields an identity-provider credential (a Google ID
// token) for one login attempt.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// StaticCredential is a credential supplied up front, by flag or env.
type StaticCredential string

func (s StaticCredential) Credential(context.Context) (string, error) {
	c := strings.TrimSpace(string(s))
	if c == "" {
		return "", ErrEmptyCredential
	}
	return c, nil
}

// PromptCredential asks for the credential on Out and reads one line from In.
type PromptCredential struct {
	In     io.Reader
	Out    io.Writer
	Prompt string
}

func (p PromptCredential) Credential(ctx context.Context) (string, error) {
	prompt := p.Prompt
	if prompt == "" {
		prompt = "Google ID token: "
	}
	fmt.Fprint(p.Out, prompt)

	line := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(p.In)
		sc.Buffer(make([]byte, 0, 4096), 64*1024)
		if sc.Scan() {
			line <- sc.Text()
			return
		}
		if err := sc.Err(); err != nil {
			errc <- err
			return
		}
		errc <- io.EOF
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errc:
		return "", fmt.Errorf("reading credential: %w", err)
	case l := <-line:
		return StaticCredential(l).Credential(ctx)
	}
}

// Backend exchanges a credential for a session.
type Backend interface {
	Login(ctx context.Context, credential string) (*models.LoginResponse, error)
}

// Service owns login and logout and answers access checks.
type Service struct {
	backend Backend
	store   *session.Store
	logger  *zap.Logger
}

// NewService creates an auth service over store.
func NewService(backend Backend, store *session.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, store: store, logger: logger}
}

// Login obtains a credential from src, exchanges it and stores the session.
// Any previous session is replaced only after the exchange succeeds.
func (s *Service) Login(ctx context.Context, src CredentialSource) (models.User, error) {
	credential, err := src.Credential(ctx)
	if err != nil {
		return models.User{}, err
	}

	resp, err := s.backend.Login(ctx, credential)
	if err != nil {
		s.logger.Warn("login failed", zap.Error(err))
		return models.User{}, fmt.Errorf("login: %w", err)
	}

	if err := s.store.Save(models.Session{User: *resp.User, Token: resp.AccessToken}); err != nil {
		return models.User{}, fmt.Errorf("storing session: %w", err)
	}
	s.logger.Info("logged in", zap.String("email", resp.User.Email), zap.String("role", resp.User.Role))
	return *resp.User, nil
}

// Logout destroys the local session.
func (s *Service) Logout() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// RequireUser returns the logged-in user or ErrNotLoggedIn.
func (s *Service) RequireUser() (models.User, error) {
	u, ok := s.store.User()
	if !ok || !s.store.Authenticated() {
		return models.User{}, ErrNotLoggedIn
	}
	return u, nil
}

// RequireAdmin returns the logged-in admin, ErrNotLoggedIn or ErrNotAdmin.
func (s *Service) RequireAdmin() (models.User, error) {
	u, err := s.RequireUser()
	if err != nil {
		return u, err
	}
	if u.Role != models.RoleAdmin {
		return u, ErrNotAdmin
	}
	return u, nil
}
