package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvClientID     = "REDDIT_CLIENT_ID"
	EnvClientSecret = "REDDIT_CLIENT_SECRET"
	EnvUsername     = "REDDIT_USERNAME"
	EnvPassword     = "REDDIT_PASSWORD"
	EnvUserAgent    = "REDDIT_USER_AGENT"
)

// EnvironmentStore is a read-only store over the REDDIT_* variables
type EnvironmentStore struct {
	getenv func(string) string
}

// NewEnvironmentStore reads from the process environment
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. A non-empty username must
// match REDDIT_USERNAME.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	account := &Account{
		Username:     e.getenv(EnvUsername),
		ClientID:     e.getenv(EnvClientID),
		ClientSecret: e.getenv(EnvClientSecret),
		Password:     e.getenv(EnvPassword),
		UserAgent:    e.getenv(EnvUserAgent),
		LastModified: time.Now(),
	}
	if account.Validate() != nil {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != account.Username {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
