package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/domain"

	"gopkg.in/yaml.v3"
)

type fileContents struct {
	Slots map[string]string `yaml:"slots"`
}

// FileStore keeps credential slots in a yaml file readable only by the
// owner. Several slots may share one file.
type FileStore struct {
	mu   sync.Mutex
	path string
	slot string
}

func NewFile(path, slot string) *FileStore {
	return &FileStore{path: path, slot: slot}
}

func (s *FileStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return "", err
	}
	token := contents.Slots[s.slot]
	if token == "" {
		return "", domain.ErrNotFound
	}
	return token, nil
}

func (s *FileStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return err
	}
	if token == "" {
		delete(contents.Slots, s.slot)
	} else {
		contents.Slots[s.slot] = token
	}
	return s.write(contents)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := contents.Slots[s.slot]; !ok {
		return nil
	}
	delete(contents.Slots, s.slot)
	return s.write(contents)
}

func (s *FileStore) read() (fileContents, error) {
	out := fileContents{Slots: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("read credentials: %w", err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse credentials: %w", err)
	}
	if out.Slots == nil {
		out.Slots = map[string]string{}
	}
	return out, nil
}

func (s *FileStore) write(contents fileContents) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := yaml.Marshal(contents)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
