// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package circuit

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/luxfi/math/set"

	"github.com/luxfi/qc"
	"github.com/luxfi/qc/bls"
	"github.com/luxfi/qc/mimc"
)

var ErrInvalidWitness = errors.New("witness does not fit the circuit")

// NewAssignment converts [cert] into a witness for the circuit. The message
// point is derived from the certificate's own digest, so the two public
// inputs can never be assigned from different messages.
//
// Only the witness shape is validated: the bit vector must have the exact
// width of the circuit's committee, set bits must stay inside it, and the
// signature and digest must decode. Whether the assignment satisfies the
// constraints is decided by the prover; a certificate that fails native
// verification produces an unsatisfiable witness, not an error here.
func (c *Circuit) NewAssignment(cert *qc.Certificate) (*Circuit, error) {
	n := len(c.keys)
	if len(cert.Signers) != qc.BitVectorLen(n) {
		return nil, fmt.Errorf(
			"%w: bit vector is %d bytes, expected %d",
			ErrInvalidWitness,
			len(cert.Signers),
			qc.BitVectorLen(n),
		)
	}

	signerIndices := set.BitsFromBytes(cert.Signers)
	if signerIndices.BitLen() > n {
		return nil, fmt.Errorf(
			"%w: bit %d is set for a committee of %d",
			ErrInvalidWitness,
			signerIndices.BitLen()-1,
			n,
		)
	}

	sig, err := bls.SignatureFromBytes(cert.Signature[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWitness, err)
	}

	digest, err := mimc.DigestFromBytes(cert.MessageDigest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWitness, err)
	}

	hm, err := bls.HashToPoint(digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to hash digest to curve: %w", err)
	}

	bits := make([]frontend.Variable, n)
	for i := range bits {
		if signerIndices.Contains(i) {
			bits[i] = 1
		} else {
			bits[i] = 0
		}
	}

	return &Circuit{
		Bits:            bits,
		Signature:       sw_bls12377.NewG2Affine(*sig),
		SignedWeight:    cert.SignedWeight,
		MessageDigest:   digest.Element(),
		MessagePoint:    sw_bls12377.NewG2Affine(*hm),
		StakeCommitment: c.commitment,
	}, nil
}

// Compile lowers the circuit into an R1CS constraint system over the
// BW6-761 scalar field.
func Compile(c *Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, c)
}
