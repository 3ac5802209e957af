// Copyright 2024 The mvn2get Authors
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

// Package signature verifies detached PGP signatures accompanying
// downloaded artifact files.
package signature

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
)

// Verdict is the outcome of a signature verification attempt.
type Verdict int

const (
	Valid Verdict = iota
	InvalidSignature
	KeyNotFound
	Unavailable
	Skipped
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case InvalidSignature:
		return "invalid_signature"
	case KeyNotFound:
		return "key_not_found"
	case Unavailable:
		return "unavailable"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Verifier is the capability the core resolver depends on. A resolver
// configured without one behaves as if NullVerifier were installed.
type Verifier interface {
	Verify(ctx context.Context, data, detachedSignature []byte, keyServers []string) Verdict
}

// NullVerifier always reports Skipped, regardless of input. It is the
// zero-cost default when PGP verification is disabled (no_pgp) or no
// verifier was wired up.
type NullVerifier struct{}

func (NullVerifier) Verify(context.Context, []byte, []byte, []string) Verdict { return Skipped }

// OpenPGPVerifier checks detached signatures against public keys fetched
// from a set of HKP key servers, grounded on securestor-securestor's
// armor-decode -> parse-signature-packet -> CheckDetachedSignature
// pipeline.
type OpenPGPVerifier struct {
	// KeyFetcher resolves a PGP key ID to an armored or binary public key
	// blob, querying keyServers in order. Exposed as a function so the
	// resolver can inject an HttpFetcher-backed implementation without this
	// package depending on the transport package.
	KeyFetcher func(ctx context.Context, keyID uint64, keyServers []string) ([]byte, error)

	// mu guards keyring: Verify runs concurrently across a coordinate's
	// files (fetchAndVerifyMany's worker pool), and a coordinate with
	// several signed files whose key is not yet cached can trigger
	// concurrent AddPublicKey calls for the same signer.
	mu      sync.Mutex
	keyring openpgp.EntityList
}

// AddPublicKey adds a public key (armored or binary) to the verifier's
// keyring, so repeated verifications against the same signer avoid
// refetching the key.
func (v *OpenPGPVerifier) AddPublicKey(keyData []byte) error {
	entities, err := readKeyRing(keyData)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keyring = append(v.keyring, entities...)
	return nil
}

func readKeyRing(keyData []byte) (openpgp.EntityList, error) {
	if bytes.Contains(keyData, []byte("BEGIN PGP PUBLIC KEY")) {
		block, err := armor.Decode(bytes.NewReader(keyData))
		if err != nil {
			return nil, fmt.Errorf("decode armored key: %w", err)
		}
		decoded, err := io.ReadAll(block.Body)
		if err != nil {
			return nil, fmt.Errorf("read armored key: %w", err)
		}
		keyData = decoded
	}
	return openpgp.ReadKeyRing(bytes.NewReader(keyData))
}

// Verify checks detachedSignature against data. The signature may be
// ASCII-armored or a raw binary OpenPGP packet.
func (v *OpenPGPVerifier) Verify(ctx context.Context, data, detachedSignature []byte, keyServers []string) Verdict {
	sigBytes, err := maybeDearmor(detachedSignature)
	if err != nil {
		return InvalidSignature
	}

	reader := packet.NewReader(bytes.NewReader(sigBytes))
	pkt, err := reader.Next()
	if err != nil {
		return InvalidSignature
	}
	sig, ok := pkt.(*packet.Signature)
	if !ok || sig.IssuerKeyId == nil {
		return InvalidSignature
	}

	if !v.hasKey(*sig.IssuerKeyId) && v.KeyFetcher != nil {
		keyData, err := v.KeyFetcher(ctx, *sig.IssuerKeyId, keyServers)
		if err != nil || len(keyData) == 0 {
			return KeyNotFound
		}
		if err := v.AddPublicKey(keyData); err != nil {
			return KeyNotFound
		}
	}
	if !v.hasKey(*sig.IssuerKeyId) {
		return KeyNotFound
	}

	v.mu.Lock()
	keyring := v.keyring
	v.mu.Unlock()
	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(sigBytes)); err != nil {
		return InvalidSignature
	}
	return Valid
}

func (v *OpenPGPVerifier) hasKey(keyID uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.keyring {
		if e.PrimaryKey.KeyId == keyID {
			return true
		}
	}
	return false
}

func maybeDearmor(data []byte) ([]byte, error) {
	if !bytes.Contains(data, []byte("BEGIN PGP SIGNATURE")) {
		return data, nil
	}
	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode armored signature: %w", err)
	}
	return io.ReadAll(block.Body)
}
