// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import (
	"errors"
	"fmt"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
)

// SignatureLen is the compressed serialized length.
const SignatureLen = bls12377.SizeOfG2AffineCompressed

var (
	ErrNoSignatures              = errors.New("no signatures")
	ErrFailedSignatureDecompress = errors.New("couldn't decompress signature")
)

// SignatureFromBytes parses the compressed big-endian format of the
// signature into a signature. Decoding checks curve and subgroup membership.
func SignatureFromBytes(sigBytes []byte) (*Signature, error) {
	var sig Signature
	if _, err := sig.SetBytes(sigBytes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedSignatureDecompress, err)
	}
	return &sig, nil
}

// SignatureToBytes returns the compressed big-endian format of the
// signature.
func SignatureToBytes(sig *Signature) []byte {
	b := sig.Bytes()
	return b[:]
}

// AggregateSignatures aggregates the provided signatures into a single
// signature by point addition. Aggregation is order-independent and never
// inspects validity; an aggregate built from a bad partial simply fails
// verification.
func AggregateSignatures(sigs []*Signature) (*Signature, error) {
	if len(sigs) == 0 {
		return nil, ErrNoSignatures
	}

	var agg bls12377.G2Jac
	agg.FromAffine(sigs[0])
	for _, sig := range sigs[1:] {
		agg.AddMixed(sig)
	}

	var out Signature
	out.FromJacobian(&agg)
	return &out, nil
}
