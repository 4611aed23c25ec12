// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

// Signer holds a secret key and produces signatures with it. Implementations
// may keep the key in memory or delegate to external key storage.
type Signer interface {
	// PublicKey returns the public key that verifies this signer's
	// signatures.
	PublicKey() *PublicKey

	// Sign signs [msg].
	Sign(msg []byte) (*Signature, error)

	// SignProofOfPossession signs [msg] under the proof-of-possession
	// ciphersuite.
	SignProofOfPossession(msg []byte) (*Signature, error)
}
