// Copyright 2026 The dflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package crypto implements the optional per-run encryption layer that sits
// between the event log and the codec's framed bytes (spec.md §4.2):
// AES-256-GCM with a key derived per run via HKDF-SHA256, wrapped in its own
// "encr" wire tag over the codec's "devl" frame.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/dflow-run/dflow/internal/dflowerrors"
)

const (
	wireTag   = "encr"
	nonceSize = 12
	keySize   = 32 // AES-256
)

// KeyMaterial is the deployment-scoped secret every run's key is derived
// from. It is never used directly to seal data; Encryptor.deriveRunKey
// turns it into a run-scoped key first.
type KeyMaterial struct {
	key       []byte
	projectID string
}

// NewKeyMaterial wraps a 32-byte deployment key. Returns a validation error
// if key is not 32 bytes.
func NewKeyMaterial(projectID string, key []byte) (*KeyMaterial, error) {
	if len(key) != keySize {
		return nil, &dflowerrors.ValidationError{
			Field:   "key",
			Message: fmt.Sprintf("encryption key material must be %d bytes, got %d", keySize, len(key)),
		}
	}
	return &KeyMaterial{key: key, projectID: projectID}, nil
}

// GenerateKeyMaterial returns fresh random 32-byte deployment key material,
// for bootstrapping a new deployment.
func GenerateKeyMaterial(projectID string) (*KeyMaterial, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key material: %w", err)
	}
	return &KeyMaterial{key: key, projectID: projectID}, nil
}

// Bytes returns the raw deployment key, for persisting to a secret store.
func (m *KeyMaterial) Bytes() []byte { return m.key }

// Encryptor encrypts and decrypts codec-framed payloads, bound to a run so
// that decrypting a ciphertext under the wrong run's key fails closed via
// the GCM authentication tag rather than silently producing garbage.
//
// A nil *Encryptor is valid and passes data through unencrypted, matching
// the contract's "Encryptor may be absent entirely".
type Encryptor struct {
	material *KeyMaterial
}

// New returns an Encryptor bound to material. Pass a nil material (or a nil
// *Encryptor itself) to run without encryption.
func New(material *KeyMaterial) *Encryptor {
	if material == nil {
		return nil
	}
	return &Encryptor{material: material}
}

// deriveRunKey derives the AES-256 key for runId via HKDF-SHA256 from the
// deployment key material, using info = "<projectId>|<runId>" and a zero
// salt (the base key material is already high-entropy, so a random salt
// would add no security margin here, only key-management overhead).
func (e *Encryptor) deriveRunKey(runID string) ([]byte, error) {
	info := fmt.Sprintf("%s|%s", e.material.projectID, runID)
	reader := hkdf.New(sha256.New, e.material.key, nil, []byte(info))
	runKey := make([]byte, keySize)
	if _, err := io.ReadFull(reader, runKey); err != nil {
		return nil, fmt.Errorf("deriving run key: %w", err)
	}
	return runKey, nil
}

func (e *Encryptor) gcmFor(runID string) (cipher.AEAD, error) {
	runKey, err := e.deriveRunKey(runID)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(runKey)
	if err != nil {
		return nil, fmt.Errorf("constructing cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals framed bytes (the codec's "devl" output) under runId's
// derived key, returning "encr" || nonce || ciphertext || tag. Called with
// a nil receiver, Encrypt returns the input unchanged.
func (e *Encryptor) Encrypt(framed []byte, runID string) ([]byte, error) {
	if e == nil {
		return framed, nil
	}

	gcm, err := e.gcmFor(runID)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, len(wireTag)+nonceSize+len(framed)+gcm.Overhead())
	out = append(out, wireTag...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, framed, nil)
	return out, nil
}

// Decrypt opens data sealed by Encrypt. If data doesn't carry the "encr"
// prefix it is returned unchanged — the mixed encrypted/plaintext history
// case the contract requires, since deployments may enable encryption
// partway through a run's lifetime. Called with a nil receiver, Decrypt
// returns the input unchanged unconditionally.
func (e *Encryptor) Decrypt(data []byte, runID string) ([]byte, error) {
	if e == nil {
		return data, nil
	}
	if len(data) < len(wireTag) || string(data[:len(wireTag)]) != wireTag {
		return data, nil
	}

	gcm, err := e.gcmFor(runID)
	if err != nil {
		return nil, err
	}
	rest := data[len(wireTag):]
	if len(rest) < nonceSize {
		return nil, &dflowerrors.DecodeError{Reason: "encrypted payload shorter than its nonce"}
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &dflowerrors.AuthError{Reason: "decryption failed: wrong key, tampered payload, or run mismatch"}
	}
	return plaintext, nil
}
