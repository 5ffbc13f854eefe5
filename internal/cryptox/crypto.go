// Package cryptox wraps the AES-GCM primitives used to keep queued signup
// payloads encrypted at rest in the local cache database.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"

	"github.com/linguaai/linguaclient/internal/common"
)

// Seal serializes v to JSON and encrypts it with AES-GCM under key.
// The key must be 16, 24, or 32 bytes. A fresh random nonce is generated
// per call and returned alongside the ciphertext.
func Seal(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Open decrypts ciphertext produced by Seal and unmarshals the JSON into v.
// The key and nonce must match the ones used during encryption.
func Open(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
