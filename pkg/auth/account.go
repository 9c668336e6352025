package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Account holds the credentials of one Reddit script app login
type Account struct {
	Username     string    `json:"username"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Password     string    `json:"password"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Validate reports the first missing required field
func (a *Account) Validate() error {
	if a == nil {
		return ErrInvalidCredentials
	}
	switch {
	case a.Username == "":
		return errors.New("username is required")
	case a.ClientID == "":
		return errors.New("client id is required")
	case a.ClientSecret == "":
		return errors.New("client secret is required")
	case a.Password == "":
		return errors.New("password is required")
	}
	return nil
}

// Masked returns a copy with the secrets hidden, for display
func (a *Account) Masked() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.ClientSecret = mask(a.ClientSecret)
	c.Password = mask(a.Password)
	return &c
}

// mask keeps the first and last 3 characters of long values
func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:3] + "..." + s[len(s)-3:]
}

// CredentialStore persists accounts keyed by username
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// ConfigDir returns the per-user directory for redditsaver state, creating
// it with 0700 if needed.
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "redditsaver")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "redditsaver")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "redditsaver")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "redditsaver")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
