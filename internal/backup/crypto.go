package backup

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

// Snapshot file layout: [4-byte magic][16-byte salt][12-byte nonce][GCM
// ciphertext]. The salt travels with the file so a restore needs only the
// passphrase; a fresh salt is drawn for every snapshot.
var snapshotMagic = []byte("CBK1")

const (
	saltLen  = 16
	nonceLen = 12

	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLen       = 32
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLen)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}

// sealFile encrypts src into dst with a freshly drawn salt and nonce.
func sealFile(src, dst, passphrase string) error {
	plaintext, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	header := make([]byte, len(snapshotMagic)+saltLen+nonceLen)
	copy(header, snapshotMagic)
	if _, err := io.ReadFull(rand.Reader, header[len(snapshotMagic):]); err != nil {
		return fmt.Errorf("random header: %w", err)
	}
	salt := header[len(snapshotMagic) : len(snapshotMagic)+saltLen]
	nonce := header[len(snapshotMagic)+saltLen:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	out := gcm.Seal(header, nonce, plaintext, nil)
	if err := os.WriteFile(dst, out, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// openFile decrypts a sealed snapshot at src into dst.
func openFile(src, dst, passphrase string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) < len(snapshotMagic)+saltLen+nonceLen {
		return fmt.Errorf("snapshot truncated")
	}
	if !bytes.Equal(data[:len(snapshotMagic)], snapshotMagic) {
		return fmt.Errorf("not a snapshot file")
	}

	salt := data[len(snapshotMagic) : len(snapshotMagic)+saltLen]
	nonce := data[len(snapshotMagic)+saltLen : len(snapshotMagic)+saltLen+nonceLen]
	ciphertext := data[len(snapshotMagic)+saltLen+nonceLen:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}

	if err := os.WriteFile(dst, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored file: %w", err)
	}
	return nil
}
