package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parley-app/parley/internal/model/conversation"
)

// ErrNoCredential is returned when nobody has logged in yet.
var ErrNoCredential = errors.New("no credential stored")

// Store holds the bearer token issued at login. Conversations read it once when they open.
type Store interface {
	Token() (conversation.Credential, error)
	Save(token conversation.Credential) error
	Clear() error
}

// MemoryStore keeps the token for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	token conversation.Credential
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token() (conversation.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token.Empty() {
		return "", ErrNoCredential
	}
	return s.token, nil
}

func (s *MemoryStore) Save(token conversation.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Save("")
}

// FileStore persists the token in a user-only file so it survives between CLI runs.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore stores the token at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the token file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "parley", "token"), nil
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Token() (conversation.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	token := conversation.Credential(strings.TrimSpace(string(data)))
	if token.Empty() {
		return "", ErrNoCredential
	}
	return token, nil
}

func (s *FileStore) Save(token conversation.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
