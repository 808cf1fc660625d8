package scraper

import (
	"log/slog"
	"net/url"

	apperrors "surveytracker/internal/errors"
)

// Session carries the platform credentials for one fetch run. It is built by
// the caller and passed to Fetch; nothing is kept between runs.
type Session struct {
	Username string
	Password string
	// LoginURL is visited once before any export when set. Without it the
	// fetcher fills a login form only when an export page presents one.
	LoginURL string
}

// HasCredentials reports whether a login should be attempted.
func (s *Session) HasCredentials() bool {
	return s != nil && s.Username != "" && s.Password != ""
}

// Validate requires both credentials when either is given.
func (s *Session) Validate() error {
	if s == nil {
		return nil
	}
	if (s.Username == "") != (s.Password == "") {
		return apperrors.NewAppValidationError("username and password must be provided together")
	}
	if s.LoginURL != "" {
		if !isHTTPURL(s.LoginURL) {
			return apperrors.NewAppValidationError("login url must be an absolute http(s) url").
				WithContext("login_url", s.LoginURL)
		}
		if !s.HasCredentials() {
			return apperrors.NewAppValidationError("login url given without credentials")
		}
	}
	return nil
}

// LogValue keeps the password out of log output.
func (s *Session) LogValue() slog.Value {
	if s == nil {
		return slog.GroupValue()
	}
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.Bool("password_set", s.Password != ""),
		slog.String("login_url", s.LoginURL),
	)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
