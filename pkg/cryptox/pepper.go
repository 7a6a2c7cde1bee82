package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Argon2id parameters.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

// LoadPepper reads the pepper stored at path, creating the file with a fresh
// random pepper when it does not exist. An empty path yields an in-memory
// pepper that does not survive a restart.
func LoadPepper(path string) (string, error) {
	if path == "" {
		return newPepper()
	}

	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		p := strings.TrimSpace(string(data))
		if p == "" {
			return "", fmt.Errorf("cryptox: pepper file %s is empty", path)
		}
		return p, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	p, err := newPepper()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(p), 0o600); err != nil {
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}
	return p, nil
}

func newPepper() (string, error) {
	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate pepper: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
