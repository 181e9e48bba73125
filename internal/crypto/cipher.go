// Package crypto implements the credential encryption boundary.
// Credential bags are sealed with AES-256-GCM before they ever reach the
// database; plaintext exists only inside the processor call that needs it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // 96-bit IV, GCM standard
	tagSize   = 16 // 128-bit authentication tag
)

// ErrEncryption is returned for any decryption or authentication failure:
// wrong key, truncated ciphertext, tampered tag. Callers must treat it as
// "credentials unreadable", never as an empty credential bag.
var ErrEncryption = errors.New("credential decryption failed")

// EncryptedRecord is the persisted shape of an encrypted credential bag.
// Ciphertext, IV and AuthTag are stored base64-encoded so the record survives
// any text column.
type EncryptedRecord struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
}

// Cipher seals and opens credential bags with a process-wide AES-256 key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 64-character hex key.
// Key problems are a startup failure, not a per-call one.
func NewCipher(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt serializes the credential bag to JSON and seals it.
// A fresh random 12-byte IV is generated on every call; IVs are never reused.
func (c *Cipher) Encrypt(credentials map[string]string) (*EncryptedRecord, error) {
	plaintext, err := json.Marshal(credentials)
	if err != nil {
		return nil, fmt.Errorf("marshaling credentials: %w", err)
	}

	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, plaintext, nil)

	// GCM appends the tag to the ciphertext; the record stores them separately
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return &EncryptedRecord{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Decrypt opens an encrypted record and unmarshals the credential bag.
// Any authentication mismatch returns ErrEncryption.
func (c *Cipher) Decrypt(rec *EncryptedRecord) (map[string]string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrEncryption)
	}
	iv, err := base64.StdEncoding.DecodeString(rec.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv encoding", ErrEncryption)
	}
	tag, err := base64.StdEncoding.DecodeString(rec.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth tag encoding", ErrEncryption)
	}
	if len(iv) != nonceSize || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: malformed record", ErrEncryption)
	}

	sealed := append(ciphertext, tag...)
	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrEncryption
	}

	var credentials map[string]string
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return nil, fmt.Errorf("%w: plaintext is not a credential bag", ErrEncryption)
	}
	return credentials, nil
}
