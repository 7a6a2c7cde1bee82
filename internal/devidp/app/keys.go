package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

// InitSigningKey loads the Ed25519 signing key and publishes it in a key set.
//
// With an empty SigningKeyFile the key is generated on startup and lost on
// restart, which invalidates every issued token. Otherwise the file is read,
// or created with a fresh key when it does not exist.
func InitSigningKey(cfg Config, logger *slog.Logger) (*jwtx.EdDSASigner, *jwtx.KeySet, error) {
	pemKey, err := loadOrCreateKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, nil, err
	}

	signer, err := jwtx.NewSignerEdDSAFromPEM(cfg.SigningKeyID, pemKey)
	if err != nil {
		return nil, nil, err
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, fmt.Errorf("failed to publish signing key: %w", err)
	}

	mode := "persistent"
	if cfg.SigningKeyFile == "" {
		mode = "ephemeral"
	}
	logger.Info("signing key ready", "kid", signer.KID(), "alg", signer.Alg(), "mode", mode)
	return signer, keys, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read signing key: %w", err)
		}
	}

	key, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	pemKey, err := cryptox.MarshalEd25519PEM(key)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create signing key dir: %w", err)
		}
		if err := os.WriteFile(path, pemKey, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write signing key: %w", err)
		}
	}
	return pemKey, nil
}
