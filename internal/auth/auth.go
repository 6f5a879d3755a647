package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	// SessionDuration is how long session tokens are valid
	SessionDuration = 30 * 24 * time.Hour // 30 days

	googleRevokeURL = "https://oauth2.googleapis.com/revoke"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
	ErrNoToken        = errors.New("no google token stored")
	ErrMissingScope   = errors.New("google grant lacks calendar access")
)

// Service handles authentication operations
type Service struct {
	db        *sql.DB
	config    *oauth2.Config
	encryptor *Encryptor
	logger    *slog.Logger

	revokeURL        string
	userinfoEndpoint string
}

type Option func(*Service)

// WithRevokeURL points token revocation somewhere other than Google.
func WithRevokeURL(u string) Option {
	return func(s *Service) { s.revokeURL = u }
}

// WithUserinfoEndpoint overrides the base URL of the userinfo API.
func WithUserinfoEndpoint(u string) Option {
	return func(s *Service) { s.userinfoEndpoint = u }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new authentication service
func NewService(db *sql.DB, oauthConfig *oauth2.Config, encryptor *Encryptor, opts ...Option) *Service {
	s := &Service{
		db:        db,
		config:    oauthConfig,
		encryptor: encryptor,
		logger:    slog.Default(),
		revokeURL: googleRevokeURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthURL returns the Google consent URL. Offline access with forced
// approval makes Google return a refresh token on every login.
func (s *Service) AuthURL(state string) string {
	return s.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// ExchangeCodeAndLogin exchanges an OAuth code for tokens, creates or updates
// the user and opens a session. It returns the user and the session token.
func (s *Service) ExchangeCodeAndLogin(ctx context.Context, code, deviceInfo string) (*User, string, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange code: %w", err)
	}

	googleUser, err := s.getGoogleUserInfo(ctx, token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user info: %w", err)
	}
	if googleUser.Email == "" {
		return nil, "", fmt.Errorf("google account has no email address")
	}

	user, err := s.upsertUser(googleUser)
	if err != nil {
		return nil, "", fmt.Errorf("failed to upsert user: %w", err)
	}

	if err := s.storeGoogleToken(user.ID, user.Email, token, grantedScopes(token, s.config.Scopes)); err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}

	sessionToken, err := s.createSession(user.ID, deviceInfo)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user logged in", "user", user.Email)
	return user, sessionToken, nil
}

// grantedScopes prefers the scope list Google reports on the token response.
func grantedScopes(token *oauth2.Token, requested []string) []string {
	if raw, ok := token.Extra("scope").(string); ok && raw != "" {
		return strings.Fields(raw)
	}
	return requested
}

// getGoogleUserInfo fetches user profile from Google
func (s *Service) getGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*goauth2.Userinfo, error) {
	opts := []option.ClientOption{option.WithHTTPClient(s.config.Client(ctx, token))}
	if s.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.userinfoEndpoint))
	}

	oauth2Service, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return oauth2Service.Userinfo.Get().Context(ctx).Do()
}

// upsertUser creates or updates a user based on Google ID
func (s *Service) upsertUser(googleUser *goauth2.Userinfo) (*User, error) {
	now := time.Now()

	var id int64
	err := s.db.QueryRow(`SELECT id FROM users WHERE google_id = ?`, googleUser.Id).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := s.db.Exec(`
			INSERT INTO users (google_id, email, name, avatar_url, created_at, updated_at, last_login_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, googleUser.Id, googleUser.Email, googleUser.Name, googleUser.Picture, now, now, now)
		if err != nil {
			return nil, err
		}
		if id, err = result.LastInsertId(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		_, err = s.db.Exec(`
			UPDATE users SET email = ?, name = ?, avatar_url = ?, updated_at = ?, last_login_at = ?
			WHERE id = ?
		`, googleUser.Email, googleUser.Name, googleUser.Picture, now, now, id)
		if err != nil {
			return nil, err
		}
	}

	return &User{
		ID:        id,
		GoogleID:  googleUser.Id,
		Email:     googleUser.Email,
		Name:      googleUser.Name,
		AvatarURL: googleUser.Picture,
	}, nil
}

// storeGoogleToken stores the encrypted token bundle. When Google omits a
// refresh token the stored one is kept.
func (s *Service) storeGoogleToken(userID int64, email string, token *oauth2.Token, scopes []string) error {
	accessEncrypted, err := s.encryptor.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	scopesJSON, _ := json.Marshal(scopes)

	if token.RefreshToken == "" {
		_, err = s.db.Exec(`
			UPDATE google_tokens SET
				access_token_encrypted = ?,
				token_type = ?,
				expiry = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE user_id = ?
		`, accessEncrypted, token.TokenType, token.Expiry, userID)
		return err
	}

	refreshEncrypted, err := s.encryptor.Encrypt([]byte(token.RefreshToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO google_tokens (user_id, access_token_encrypted, refresh_token_encrypted, token_type, expiry, scopes, email, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token_encrypted = excluded.access_token_encrypted,
			refresh_token_encrypted = excluded.refresh_token_encrypted,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			scopes = excluded.scopes,
			email = excluded.email,
			updated_at = CURRENT_TIMESTAMP
	`, userID, accessEncrypted, refreshEncrypted, token.TokenType, token.Expiry, string(scopesJSON), email)
	return err
}

// updateRefreshedToken rewrites the secret parts of an existing bundle and
// leaves scopes and email alone.
func (s *Service) updateRefreshedToken(userID int64, token *oauth2.Token) error {
	accessEncrypted, err := s.encryptor.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshEncrypted, err := s.encryptor.Encrypt([]byte(token.RefreshToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	_, err = s.db.Exec(`
		UPDATE google_tokens SET
			access_token_encrypted = ?,
			refresh_token_encrypted = ?,
			token_type = ?,
			expiry = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`, accessEncrypted, refreshEncrypted, token.TokenType, token.Expiry, userID)
	return err
}

// GetGoogleToken retrieves and decrypts the Google OAuth token for a user
func (s *Service) GetGoogleToken(userID int64) (*oauth2.Token, error) {
	var accessEncrypted, refreshEncrypted []byte
	var tokenType sql.NullString
	var expiry sql.NullTime

	err := s.db.QueryRow(`
		SELECT access_token_encrypted, refresh_token_encrypted, token_type, expiry
		FROM google_tokens WHERE user_id = ?
	`, userID).Scan(&accessEncrypted, &refreshEncrypted, &tokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get google token: %w", err)
	}

	accessToken, err := s.encryptor.Decrypt(accessEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	refreshToken, err := s.encryptor.Decrypt(refreshEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  string(accessToken),
		RefreshToken: string(refreshToken),
		TokenType:    tokenType.String,
	}
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return token, nil
}

// GetUserScopes returns the scopes recorded with the user's token.
func (s *Service) GetUserScopes(userID int64) ([]string, error) {
	var scopesJSON sql.NullString
	err := s.db.QueryRow(`SELECT scopes FROM google_tokens WHERE user_id = ?`, userID).Scan(&scopesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	if !scopesJSON.Valid || scopesJSON.String == "" {
		return nil, nil
	}

	var scopes []string
	if err := json.Unmarshal([]byte(scopesJSON.String), &scopes); err != nil {
		return nil, fmt.Errorf("failed to parse scopes: %w", err)
	}
	return scopes, nil
}

// requireCalendarScope returns ErrMissingScope when the recorded grant does
// not cover event creation. Grants stored without a scope list pass.
func (s *Service) requireCalendarScope(userID int64) error {
	scopes, err := s.GetUserScopes(userID)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return nil
	}
	for _, scope := range scopes {
		if scope == calendar.CalendarEventsScope || scope == calendar.CalendarScope {
			return nil
		}
	}
	return ErrMissingScope
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// createSession creates a new session for a user
func (s *Service) createSession(userID int64, deviceInfo string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	_, err := s.db.Exec(`
		INSERT INTO user_sessions (user_id, token_hash, expires_at, device_info)
		VALUES (?, ?, ?, ?)
	`, userID, hashToken(token), time.Now().Add(SessionDuration), deviceInfo)
	if err != nil {
		return "", err
	}

	return token, nil
}

// ValidateSession validates a session token and returns the user
func (s *Service) ValidateSession(token string) (*User, error) {
	tokenHash := hashToken(token)

	var user User
	var expiresAt time.Time
	err := s.db.QueryRow(`
		SELECT u.id, u.google_id, u.email, COALESCE(u.name, ''), COALESCE(u.avatar_url, ''), s.expires_at
		FROM user_sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token_hash = ?
	`, tokenHash).Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.AvatarURL, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidSession
	} else if err != nil {
		return nil, err
	}

	if time.Now().After(expiresAt) {
		if _, err := s.db.Exec(`DELETE FROM user_sessions WHERE token_hash = ?`, tokenHash); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	return &user, nil
}

// Logout invalidates a session token
func (s *Service) Logout(token string) error {
	_, err := s.db.Exec(`DELETE FROM user_sessions WHERE token_hash = ?`, hashToken(token))
	return err
}

// CleanupExpiredSessions removes all expired sessions and reports how many.
func (s *Service) CleanupExpiredSessions() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM user_sessions WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
