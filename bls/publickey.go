// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import (
	"errors"
	"fmt"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
)

const (
	// PublicKeyLen is the compressed serialized length.
	PublicKeyLen = bls12377.SizeOfG1AffineCompressed
	// UncompressedPublicKeyLen is the uncompressed serialized length.
	UncompressedPublicKeyLen = bls12377.SizeOfG1AffineUncompressed
)

var (
	ErrNoPublicKeys              = errors.New("no public keys")
	ErrFailedPublicKeyDecompress = errors.New("couldn't decompress public key")
	ErrInvalidPublicKey          = errors.New("invalid public key")
)

// PublicKeyFromCompressedBytes parses the compressed big-endian format of a
// public key into a public key. Decoding checks curve and subgroup
// membership; the identity element is rejected.
func PublicKeyFromCompressedBytes(pkBytes []byte) (*PublicKey, error) {
	var pk PublicKey
	if _, err := pk.SetBytes(pkBytes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedPublicKeyDecompress, err)
	}
	if pk.IsInfinity() {
		return nil, ErrInvalidPublicKey
	}
	return &pk, nil
}

// PublicKeyToCompressedBytes returns the compressed big-endian format of the
// public key.
func PublicKeyToCompressedBytes(pk *PublicKey) []byte {
	b := pk.Bytes()
	return b[:]
}

// PublicKeyToUncompressedBytes returns the uncompressed big-endian format of
// the public key.
func PublicKeyToUncompressedBytes(pk *PublicKey) []byte {
	b := pk.RawBytes()
	return b[:]
}

// PublicKeyFromValidUncompressedBytes parses the uncompressed big-endian
// format of the public key into a public key. Returns nil if the bytes do
// not encode a valid, non-identity subgroup point.
func PublicKeyFromValidUncompressedBytes(pkBytes []byte) *PublicKey {
	if len(pkBytes) != UncompressedPublicKeyLen {
		return nil
	}
	var pk PublicKey
	if _, err := pk.SetBytes(pkBytes); err != nil {
		return nil
	}
	if pk.IsInfinity() {
		return nil
	}
	return &pk
}

// AggregatePublicKeys aggregates the provided public keys into a single key
// by point addition, the combination rule matching AggregateSignatures.
func AggregatePublicKeys(pks []*PublicKey) (*PublicKey, error) {
	if len(pks) == 0 {
		return nil, ErrNoPublicKeys
	}

	var agg bls12377.G1Jac
	agg.FromAffine(pks[0])
	for _, pk := range pks[1:] {
		agg.AddMixed(pk)
	}

	var out PublicKey
	out.FromJacobian(&agg)
	return &out, nil
}
