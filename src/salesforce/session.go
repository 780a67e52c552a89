package salesforce

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// SessionStore persists the authenticated session between invocations so a
// fresh run can skip the login round-trip. Sessions live in a 0600 file
// under the cache directory and expire with the session itself.
type SessionStore struct {
	Path string
}

// NewSessionStore creates a store writing to the given file path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{Path: path}
}

// Load returns the persisted session if it is still valid. Corrupt or
// expired files are removed and treated as absent.
func (s *SessionStore) Load() (*Session, bool) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, false
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		os.Remove(s.Path)
		return nil, false
	}
	if !sess.Valid() {
		os.Remove(s.Path)
		return nil, false
	}
	return &sess, true
}

// Save persists the session with owner-only permissions.
func (s *SessionStore) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}

// Clear removes the persisted session, if any.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
