package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(testKey)
	require.NoError(t, err)
	return c
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	_, err := NewCipher("not-hex")
	assert.Error(t, err)

	_, err = NewCipher("abcd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")

	_, err = NewCipher(strings.Repeat("ab", 16))
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	creds := map[string]string{
		"api_key":        "sk_live_abc123",
		"publication_id": "pub_9f21",
	}

	rec, err := c.Encrypt(creds)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Ciphertext)

	iv, err := base64.StdEncoding.DecodeString(rec.IV)
	require.NoError(t, err)
	assert.Len(t, iv, 12)

	tag, err := base64.StdEncoding.DecodeString(rec.AuthTag)
	require.NoError(t, err)
	assert.Len(t, tag, 16)

	got, err := c.Decrypt(rec)
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestEncryptGeneratesFreshIV(t *testing.T) {
	c := newTestCipher(t)
	creds := map[string]string{"api_key": "k"}

	a, err := c.Encrypt(creds)
	require.NoError(t, err)
	b, err := c.Encrypt(creds)
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

// flipBit decodes the base64 field, flips one bit, and re-encodes.
func flipBit(t *testing.T, encoded string) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	raw[0] ^= 0x01
	return base64.StdEncoding.EncodeToString(raw)
}

func TestDecryptDetectsTampering(t *testing.T) {
	c := newTestCipher(t)
	rec, err := c.Encrypt(map[string]string{"api_key": "secret-value"})
	require.NoError(t, err)

	t.Run("ciphertext", func(t *testing.T) {
		bad := *rec
		bad.Ciphertext = flipBit(t, rec.Ciphertext)
		_, err := c.Decrypt(&bad)
		assert.ErrorIs(t, err, ErrEncryption)
	})

	t.Run("iv", func(t *testing.T) {
		bad := *rec
		bad.IV = flipBit(t, rec.IV)
		_, err := c.Decrypt(&bad)
		assert.ErrorIs(t, err, ErrEncryption)
	})

	t.Run("auth tag", func(t *testing.T) {
		bad := *rec
		bad.AuthTag = flipBit(t, rec.AuthTag)
		_, err := c.Decrypt(&bad)
		assert.ErrorIs(t, err, ErrEncryption)
	})
}

func TestDecryptWithWrongKey(t *testing.T) {
	c := newTestCipher(t)
	rec, err := c.Encrypt(map[string]string{"api_key": "secret"})
	require.NoError(t, err)

	other, err := NewCipher(strings.Repeat("0f", 32))
	require.NoError(t, err)

	_, err = other.Decrypt(rec)
	assert.ErrorIs(t, err, ErrEncryption)
}

func TestDecryptMalformedRecord(t *testing.T) {
	c := newTestCipher(t)

	_, err := c.Decrypt(&EncryptedRecord{Ciphertext: "!!!", IV: "", AuthTag: ""})
	assert.ErrorIs(t, err, ErrEncryption)

	_, err = c.Decrypt(&EncryptedRecord{
		Ciphertext: base64.StdEncoding.EncodeToString([]byte("x")),
		IV:         base64.StdEncoding.EncodeToString([]byte("short")),
		AuthTag:    base64.StdEncoding.EncodeToString(make([]byte, 16)),
	})
	assert.ErrorIs(t, err, ErrEncryption)
}
