package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/semmidev/dbdrive/internal/adapter/storage"
	"golang.org/x/oauth2"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Authorizer runs the Google consent flow once and stores the resulting
// refresh token for the Drive remote's oauth mode.
type Authorizer struct {
	config     *oauth2.Config
	tokenPath  string
	state      string
	logger     Logger
	authServer *http.Server
	done       chan error
}

func NewAuthorizer(logger Logger, clientSecretPath, tokenPath string) (*Authorizer, error) {
	if clientSecretPath == "" {
		return nil, errors.New("client secret path cannot be empty")
	}
	if tokenPath == "" {
		return nil, errors.New("token path cannot be empty")
	}

	cfg, err := storage.LoadOAuthConfig(clientSecretPath)
	if err != nil {
		return nil, err
	}

	return newAuthorizer(logger, cfg, tokenPath), nil
}

func newAuthorizer(logger Logger, cfg *oauth2.Config, tokenPath string) *Authorizer {
	return &Authorizer{
		config:    cfg,
		tokenPath: tokenPath,
		state:     uuid.NewString(),
		logger:    logger,
		done:      make(chan error, 1),
	}
}

func (s *Authorizer) AuthURL() string {
	return s.config.AuthCodeURL(s.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (s *Authorizer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/drive", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.AuthURL(), http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != s.state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := s.config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		if token.RefreshToken == "" {
			fmt.Fprintln(w, "⚠️ No refresh token returned. Revoke app access & re-authorize.")
			return
		}

		if err := storage.SaveToken(s.tokenPath, token); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			s.signal(err)
			return
		}

		s.logger.Infof("Refresh token saved to %s", s.tokenPath)
		fmt.Fprintf(w, "✅ Authorized. Token saved to %s, you can close this window.\n", s.tokenPath)
		s.signal(nil)
	})

	return mux
}

func (s *Authorizer) signal(err error) {
	select {
	case s.done <- err:
	default:
	}
}

// Start serves the consent endpoints in the background.
func (s *Authorizer) Start(addr string) {
	s.authServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Infof("Google Drive OAuth server listening on %s", s.authServer.Addr)
		if err := s.authServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("OAuth server error: %v", err)
			s.signal(err)
		}
	}()
}

// Wait blocks until a token has been saved, the server fails, or ctx ends.
func (s *Authorizer) Wait(ctx context.Context) error {
	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Authorizer) Shutdown(ctx context.Context) error {
	if s.authServer == nil {
		return nil
	}

	if err := s.authServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown OAuth server: %w", err)
	}
	s.logger.Infof("OAuth server stopped successfully")
	return nil
}
