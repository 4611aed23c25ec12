// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import (
	"errors"
	"fmt"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// SecretKeyLen is the serialized length of a secret key.
const SecretKeyLen = fr.Bytes

var ErrFailedSecretKeyDeserialize = errors.New("couldn't deserialize secret key")

// SecretKey is a scalar of the signature curve.
type SecretKey = fr.Element

// NewSecretKey samples a fresh secret key from crypto/rand.
func NewSecretKey() (*SecretKey, error) {
	var sk SecretKey
	for {
		if _, err := sk.SetRandom(); err != nil {
			return nil, fmt.Errorf("failed to sample secret key: %w", err)
		}
		// The zero scalar maps to the identity public key.
		if !sk.IsZero() {
			return &sk, nil
		}
	}
}

// SecretKeyFromBytes parses the big-endian canonical format of the secret
// key into a secret key.
func SecretKeyFromBytes(skBytes []byte) (*SecretKey, error) {
	if len(skBytes) != SecretKeyLen {
		return nil, fmt.Errorf("%w: length %d, expected %d", ErrFailedSecretKeyDeserialize, len(skBytes), SecretKeyLen)
	}
	var sk SecretKey
	if err := sk.SetBytesCanonical(skBytes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedSecretKeyDeserialize, err)
	}
	if sk.IsZero() {
		return nil, fmt.Errorf("%w: zero scalar", ErrFailedSecretKeyDeserialize)
	}
	return &sk, nil
}

// SecretKeyToBytes returns the big-endian format of the secret key.
func SecretKeyToBytes(sk *SecretKey) []byte {
	b := sk.Bytes()
	return b[:]
}

// PublicFromSecretKey returns the public key that corresponds to [sk].
func PublicFromSecretKey(sk *SecretKey) *PublicKey {
	var s big.Int
	sk.BigInt(&s)

	var pk PublicKey
	pk.ScalarMultiplicationBase(&s)
	return &pk
}

// Sign signs [msg] with [sk].
func Sign(sk *SecretKey, msg []byte) (*Signature, error) {
	return sign(sk, msg, ciphersuiteSignature)
}

// SignProofOfPossession signs [msg] with [sk] under the proof-of-possession
// ciphersuite. Registering a key together with a proof of possession over
// its own serialization is what makes public-key aggregation safe against
// rogue-key attacks.
func SignProofOfPossession(sk *SecretKey, msg []byte) (*Signature, error) {
	return sign(sk, msg, ciphersuiteProofOfPossession)
}

func sign(sk *SecretKey, msg []byte, ciphersuite []byte) (*Signature, error) {
	hm, err := bls12377.HashToG2(msg, ciphersuite)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message to curve: %w", err)
	}

	var s big.Int
	sk.BigInt(&s)

	var sig Signature
	sig.ScalarMultiplication(&hm, &s)
	return &sig, nil
}
