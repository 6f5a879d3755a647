package gcal

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	goauth2 "google.golang.org/api/oauth2/v2"
)

const CallbackPath = "/oauth2callback"

const calendarListReadonlyScope = "https://www.googleapis.com/auth/calendar.calendarlist.readonly"

// OAuthScopes is everything the login flow asks for: the user's identity and
// write access to events.
var OAuthScopes = []string{
	calendar.CalendarEventsScope,
	calendarListReadonlyScope,
	goauth2.UserinfoEmailScope,
	goauth2.UserinfoProfileScope,
	goauth2.OpenIDScope,
}

// LoadOAuthConfig reads the OAuth client from inline JSON or a credentials
// file and points its redirect at baseURL + CallbackPath.
func LoadOAuthConfig(credentialsJSON, credentialsFile, baseURL string) (*oauth2.Config, error) {
	redirectURL := strings.TrimRight(baseURL, "/") + CallbackPath

	// Environment first (useful for container deployments)
	if credentialsJSON != "" {
		config, err := google.ConfigFromJSON([]byte(credentialsJSON), OAuthScopes...)
		if err == nil {
			config.RedirectURL = redirectURL
			return config, nil
		}
	}

	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		config, err := google.ConfigFromJSON(data, OAuthScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		config.RedirectURL = redirectURL
		return config, nil
	}

	return nil, fmt.Errorf("no credentials found - provide credentials.json or set GOOGLE_CREDENTIALS_JSON")
}
