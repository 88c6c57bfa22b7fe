// Package accounts stores the saved game accounts and extracts credentials
// from pasted game links.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/tntool/escapebot/internal/fileutil"
)

// Account is one saved credential pair.
type Account struct {
	UserID    int64  `json:"user_id"`
	SecretKey string `json:"secret_key"`
	Label     string `json:"label,omitempty"`
}

// Store is the on-disk account list. Not safe for concurrent use; the CLI
// loads, mutates and saves it within one command.
type Store struct {
	path     string
	Accounts []Account `json:"accounts"`
}

// ErrDuplicate is returned when adding an account whose user id is already
// saved.
var ErrDuplicate = errors.New("account already saved")

// ErrNotFound is returned when removing or selecting an unknown account.
var ErrNotFound = errors.New("account not found")

// Load reads the account store. A missing file yields an empty store bound
// to the same path.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return s, nil
}

// Save writes the store atomically.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, append(data, '\n'), 0o600)
}

// Add appends an account, rejecting duplicate user ids.
func (s *Store) Add(a Account) error {
	if a.UserID == 0 || a.SecretKey == "" {
		return fmt.Errorf("account needs both user id and secret key")
	}
	for _, existing := range s.Accounts {
		if existing.UserID == a.UserID {
			return fmt.Errorf("%w: user %d", ErrDuplicate, a.UserID)
		}
	}
	s.Accounts = append(s.Accounts, a)
	return nil
}

// Remove deletes the account with the given user id.
func (s *Store) Remove(userID int64) error {
	for i, a := range s.Accounts {
		if a.UserID == userID {
			s.Accounts = append(s.Accounts[:i], s.Accounts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: user %d", ErrNotFound, userID)
}

// Find returns the account with the given user id.
func (s *Store) Find(userID int64) (Account, error) {
	for _, a := range s.Accounts {
		if a.UserID == userID {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
}

// ParseGameLink extracts credentials from a pasted game URL. The launcher
// embeds them as query parameters; both camelCase and snake_case spellings
// appear in the wild.
func ParseGameLink(link string) (Account, error) {
	u, err := url.Parse(link)
	if err != nil {
		return Account{}, fmt.Errorf("invalid game link: %w", err)
	}
	q := u.Query()

	rawID := firstParam(q, "userId", "user_id", "uid")
	rawKey := firstParam(q, "secretKey", "secret_key", "user_secret_key")
	if rawID == "" || rawKey == "" {
		return Account{}, fmt.Errorf("game link missing userId or secretKey")
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Account{}, fmt.Errorf("invalid user id %q: %w", rawID, err)
	}
	return Account{UserID: id, SecretKey: rawKey}, nil
}

func firstParam(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}
