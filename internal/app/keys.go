package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/quollsec/sessiond/internal/domain"
	"github.com/quollsec/sessiond/internal/store"
	"github.com/quollsec/sessiond/pkg/cryptox"
	"github.com/quollsec/sessiond/pkg/idx"
	"github.com/quollsec/sessiond/pkg/tokencodec"
)

// InitSigningKeys builds the token keyring for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": a fresh Ed25519 key is generated on startup and kept only
//     in memory. All tokens from previous runs become invalid.
//   - "persistent": keys are stored in the database encrypted with a master
//     key loaded from MasterKeyPath. Tokens survive restarts, and retired
//     keys stay verify-only so outstanding tokens age out naturally.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*tokencodec.Keyring, error) {
	keys := tokencodec.NewKeyring()

	switch cfg.KeyStorageMode {
	case "persistent":
		if err := loadPersistentKeys(ctx, cfg, db, keys, logger); err != nil {
			return nil, err
		}
		logger.Info("persistent key mode enabled - tokens will survive restarts",
			"active_kid", keys.ActiveKID(),
			"num_keys", len(keys.KIDs()),
		)

	case "ephemeral":
		fallthrough
	default:
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}

		kid := idx.New().String()
		if err := keys.Rotate(kid, pemKey); err != nil {
			return nil, fmt.Errorf("failed to install signing key: %w", err)
		}

		logger.Info("generated ephemeral signing key", "kid", kid, "issuer", cfg.Issuer)
		logger.Warn("all tokens from previous runs are now invalid")
	}

	return keys, nil
}

// loadPersistentKeys decrypts stored keys into the ring, generating and
// persisting an initial key on first boot. The newest unretired key signs;
// older unretired keys stay verify-only.
func loadPersistentKeys(ctx context.Context, cfg Config, db store.Store, keys *tokencodec.Keyring, logger *slog.Logger) error {
	if cfg.MasterKeyPath == "" {
		return fmt.Errorf("persistent key mode requires SESSION_MASTER_KEY_PATH")
	}

	material, err := os.ReadFile(cfg.MasterKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read master key file: %w", err)
	}
	masterKey := cryptox.DeriveMasterKey(material)

	stored, err := db.SigningKeys().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list signing keys: %w", err)
	}

	// List returns newest first. The first unretired key becomes the signer.
	var activeInstalled bool
	for _, rec := range stored {
		if rec.Retired() {
			continue
		}

		pemKey, err := cryptox.DecryptPrivateKey(masterKey, rec.EncryptedPEM)
		if err != nil {
			return fmt.Errorf("failed to decrypt signing key %s: %w", rec.KID, err)
		}

		if !activeInstalled {
			if err := keys.Rotate(rec.KID, pemKey); err != nil {
				return fmt.Errorf("failed to install signing key %s: %w", rec.KID, err)
			}
			activeInstalled = true
			continue
		}

		if err := keys.AddVerifyOnly(rec.KID, pemKey); err != nil {
			return fmt.Errorf("failed to install verify key %s: %w", rec.KID, err)
		}
	}

	if activeInstalled {
		logger.Info("persistent signing keys loaded", "num_keys", len(keys.KIDs()))
		return nil
	}

	// First boot: generate, encrypt and persist an initial key.
	pemKey, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}

	encrypted, err := cryptox.EncryptPrivateKey(masterKey, pemKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt signing key: %w", err)
	}

	kid := idx.New().String()
	if err := db.SigningKeys().Put(ctx, domain.SigningKey{
		KID:          kid,
		EncryptedPEM: encrypted,
	}); err != nil {
		return fmt.Errorf("failed to persist signing key: %w", err)
	}

	if err := keys.Rotate(kid, pemKey); err != nil {
		return fmt.Errorf("failed to install signing key %s: %w", kid, err)
	}

	logger.Info("generated and persisted initial signing key", "kid", kid)
	return nil
}
