package profile

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// keyring seals credential values with XChaCha20-Poly1305 under a key kept in
// a mode-0600 file next to the database. The AEAD is built lazily on first
// use; both the UI path and a background wake can race to initialize it.
type keyring struct {
	keyPath string

	mu   sync.Mutex
	aead cipher.AEAD
}

func newKeyring(basePath string) *keyring {
	return &keyring{keyPath: filepath.Join(basePath, "credential.key")}
}

func (k *keyring) sealer() (cipher.AEAD, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.aead != nil {
		return k.aead, nil
	}

	key, err := loadOrCreateKey(k.keyPath)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build credential cipher: %w", err)
	}
	k.aead = aead
	return aead, nil
}

func (k *keyring) seal(plaintext string) ([]byte, error) {
	aead, err := k.sealer()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (k *keyring) open(sealed []byte) (string, error) {
	aead, err := k.sealer()
	if err != nil {
		return "", err
	}

	if len(sealed) < aead.NonceSize() {
		return "", fmt.Errorf("sealed credential too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed credential: %w", err)
	}
	return string(plaintext), nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, decodeErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decodeErr != nil || len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("credential key file %s is corrupt", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate credential key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write credential key: %w", err)
	}
	return key, nil
}
