// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bls implements aggregatable BLS signatures over BLS12-377 in the
// min-pk configuration: public keys are G1 points, signatures are G2 points.
// BLS12-377 pairs with BW6-761, whose scalar field is this curve's base
// field, so signature verification can also be expressed as constraints in a
// BW6-761 circuit with native field arithmetic.
//
// Verification returns a boolean, never an error: malformed encodings are
// rejected when bytes are decoded, and a decoded key or signature either
// satisfies the pairing equation or it does not.
package bls

import (
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
)

type (
	// PublicKey is a point in G1.
	PublicKey = bls12377.G1Affine
	// Signature is a point in G2.
	Signature = bls12377.G2Affine
)

// Hash-to-curve ciphersuite tags. Proofs of possession use a separate tag so
// a signature over a message can never double as a proof of possession for
// that message, and vice versa.
var (
	ciphersuiteSignature         = []byte("BLS_SIG_BLS12377G2_XMD:SHA-256_SSWU_RO_NUL_")
	ciphersuiteProofOfPossession = []byte("BLS_POP_BLS12377G2_XMD:SHA-256_SSWU_RO_POP_")

	g1Gen    bls12377.G1Affine
	g1GenNeg bls12377.G1Affine
)

func init() {
	_, _, g1Gen, _ = bls12377.Generators()
	g1GenNeg.Neg(&g1Gen)
}

// HashToPoint maps a message to the G2 point that signatures over it commit
// to, using the signing ciphersuite. Exposed because circuit-side verifiers
// take the point as a public input and must recompute it from the message.
func HashToPoint(msg []byte) (*Signature, error) {
	hm, err := bls12377.HashToG2(msg, ciphersuiteSignature)
	if err != nil {
		return nil, err
	}
	return &hm, nil
}

// Verify returns whether [sig] is a valid signature over [msg] by the owner
// of [pk].
func Verify(pk *PublicKey, sig *Signature, msg []byte) bool {
	return verify(pk, sig, msg, ciphersuiteSignature)
}

// VerifyProofOfPossession returns whether [sig] proves possession of the
// secret key behind [pk] for [msg], under the proof-of-possession
// ciphersuite.
func VerifyProofOfPossession(pk *PublicKey, sig *Signature, msg []byte) bool {
	return verify(pk, sig, msg, ciphersuiteProofOfPossession)
}

func verify(pk *PublicKey, sig *Signature, msg []byte, ciphersuite []byte) bool {
	if pk == nil || sig == nil {
		return false
	}
	// The identity public key verifies any message against the identity
	// signature; both are forgeries.
	if pk.IsInfinity() {
		return false
	}

	hm, err := bls12377.HashToG2(msg, ciphersuite)
	if err != nil {
		return false
	}

	// e(pk, H(msg)) == e(g1, sig)
	ok, err := bls12377.PairingCheck(
		[]bls12377.G1Affine{*pk, g1GenNeg},
		[]bls12377.G2Affine{hm, *sig},
	)
	return err == nil && ok
}
