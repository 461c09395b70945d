package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// MasterKeySize is the AES-256 key length used for private key encryption.
const MasterKeySize = 32

// DeriveMasterKey derives a 32-byte AES-256 key from arbitrary key material
// (typically the contents of a master key file). The master key is passed
// explicitly by whoever owns configuration, never read from ambient state.
func DeriveMasterKey(material []byte) []byte {
	sum := sha256.Sum256(material)
	return sum[:]
}

// EncryptPrivateKey encrypts a PEM-encoded private key using AES-256-GCM
// under the given master key. Output format: [nonce][ciphertext+tag].
func EncryptPrivateKey(masterKey, pemData []byte) ([]byte, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, pemData, nil), nil
}

// DecryptPrivateKey decrypts data produced by EncryptPrivateKey.
func DecryptPrivateKey(masterKey, encrypted []byte) ([]byte, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encrypted) < nonceSize {
		return nil, errors.New("cryptox: ciphertext too short")
	}

	nonce, ciphertext := encrypted[:nonceSize], encrypted[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(masterKey []byte) (cipher.AEAD, error) {
	if len(masterKey) != MasterKeySize {
		return nil, fmt.Errorf("cryptox: master key must be %d bytes, got %d", MasterKeySize, len(masterKey))
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create GCM: %w", err)
	}
	return gcm, nil
}
