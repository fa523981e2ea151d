package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

const secretBoxVersion = "v1"

// SecretBox seals seller webhook secrets with AES-256-GCM under the
// platform master key. Stored form is "v1:" + base64(nonce||ciphertext);
// plaintext never reaches the store.
type SecretBox struct {
	aead cipher.AEAD
}

func NewSecretBox(masterKeyB64 string) (*SecretBox, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(masterKeyB64))
	if err != nil {
		return nil, errors.New("secrets master key is not valid base64")
	}
	if len(key) != 32 {
		return nil, errors.New("secrets master key must be 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecretBox{aead: aead}, nil
}

func (b *SecretBox) Seal(plain string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plain), nil)
	return secretBoxVersion + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

func (b *SecretBox) Open(stored string) (string, error) {
	version, encoded, ok := strings.Cut(stored, ":")
	if !ok || version != secretBoxVersion {
		return "", errors.New("unrecognized sealed secret format")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) < b.aead.NonceSize() {
		return "", errors.New("sealed secret is truncated")
	}

	nonce, ciphertext := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	plain, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
