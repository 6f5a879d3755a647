package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// Credentials is one user's Google token bundle. Calendar calls take its
// TokenSource; refreshed tokens are written back to storage.
type Credentials struct {
	svc    *Service
	userID int64
	source oauth2.TokenSource
}

// Credentials loads the stored token for userID. It returns ErrNoToken when
// the user never completed the consent flow.
func (s *Service) Credentials(ctx context.Context, userID int64) (*Credentials, error) {
	token, err := s.GetGoogleToken(userID)
	if err != nil {
		return nil, err
	}

	// The refresh request outlives any single HTTP request, so it must not
	// inherit the request's cancellation.
	refreshCtx := context.WithoutCancel(ctx)
	ps := &persistingSource{
		svc:    s,
		userID: userID,
		base:   s.config.TokenSource(refreshCtx, token),
		last:   token.AccessToken,
	}

	return &Credentials{
		svc:    s,
		userID: userID,
		source: oauth2.ReuseTokenSource(token, ps),
	}, nil
}

func (c *Credentials) TokenSource() oauth2.TokenSource {
	return c.source
}

// Revoke invalidates the grant at Google, then forgets the stored token and
// every session of the user.
func (c *Credentials) Revoke(ctx context.Context) error {
	token, err := c.source.Token()
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.svc.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	// 400 means Google already considers the token invalid.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("revoke failed with status %d", resp.StatusCode)
	}

	if _, err := c.svc.db.ExecContext(ctx, `DELETE FROM google_tokens WHERE user_id = ?`, c.userID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if _, err := c.svc.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, c.userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// persistingSource stores every new access token it obtains.
type persistingSource struct {
	svc    *Service
	userID int64
	base   oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.svc.updateRefreshedToken(p.userID, token); err != nil {
			p.svc.logger.Warn("failed to persist refreshed token", "user_id", p.userID, "error", err)
		} else {
			p.last = token.AccessToken
		}
	}
	return token, nil
}

// TokenSource is shorthand for Credentials(ctx, userID).TokenSource(). It
// returns ErrMissingScope when the user declined calendar access at consent.
func (s *Service) TokenSource(ctx context.Context, userID int64) (oauth2.TokenSource, error) {
	if err := s.requireCalendarScope(userID); err != nil {
		return nil, err
	}
	creds, err := s.Credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	return creds.TokenSource(), nil
}

// RevokeUser revokes the user's grant and ends all their sessions.
func (s *Service) RevokeUser(ctx context.Context, userID int64) error {
	creds, err := s.Credentials(ctx, userID)
	if err != nil {
		return err
	}
	return creds.Revoke(ctx)
}
