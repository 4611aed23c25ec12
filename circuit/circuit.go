// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package circuit expresses quorum certificate verification as a rank-1
// constraint system over the BW6-761 scalar field.
//
// A circuit fixes one committee: the public keys, weights, and quorum
// threshold are compiled into the constraint system as constants, committed
// to by a MiMC transcript exposed as a public input. The witness selects a
// subset of the committee with a bit vector, and the constraints enforce
// the same acceptance rule the native path checks: every bit is boolean,
// the selected weights sum to the declared signed weight, the signed weight
// meets the quorum threshold, and the aggregate of the selected keys
// verifies the witness signature against the public message point.
//
// Signature verification inside the constraint system is affordable because
// BLS12-377 forms a 2-chain with BW6-761: the BW6-761 scalar field equals
// the BLS12-377 base field, so curve arithmetic costs native field
// multiplications instead of a non-native emulation.
//
// Hashing to the curve stays outside the circuit. The certified digest and
// its curve image are public inputs; a proof consumer recomputes the digest
// from the message it expects and the point from the digest, so a proof
// only convinces a verifier of a statement it already holds the message
// for.
package circuit

import (
	"errors"
	"fmt"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fp"
	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/fields_bls12377"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/luxfi/qc"
	"github.com/luxfi/qc/stake"
)

var (
	_ frontend.Circuit = (*Circuit)(nil)

	ErrEmptyCommittee = errors.New("committee has no entries")

	g1GenX, g1GenY   fp.Element
	twistB0, twistB1 fp.Element
)

func init() {
	_, _, g1, g2 := bls12377.Generators()
	g1GenX = g1.X
	g1GenY = g1.Y

	// The twist coefficient b' of the G2 curve equation y^2 = x^3 + b',
	// recovered from the generator rather than the library internals.
	y2 := g2.Y
	y2.Square(&g2.Y)
	x2 := g2.X
	x2.Square(&g2.X)
	x3 := x2
	x3.Mul(&x2, &g2.X)
	b := y2
	b.Sub(&y2, &x3)
	twistB0 = b.A0
	twistB1 = b.A1
}

// Circuit proves that a quorum of a fixed committee signed a message.
//
// The committee itself is not part of the witness. Its keys and weights are
// constants of the constraint system, bound to the StakeCommitment public
// input by an in-circuit MiMC transcript, so a proof is only satisfiable
// against the exact table the circuit was built for.
type Circuit struct {
	// Bits selects the signing subset, one bit per table position.
	Bits []frontend.Variable
	// Signature is the aggregate signature of the selected members.
	Signature sw_bls12377.G2Affine

	// SignedWeight is the claimed total weight of the selected members.
	SignedWeight frontend.Variable `gnark:",public"`
	// MessageDigest is the certified digest. Its canonical encoding is the
	// value the committee signed.
	MessageDigest frontend.Variable `gnark:",public"`
	// MessagePoint is the certified digest hashed to the curve.
	MessagePoint sw_bls12377.G2Affine `gnark:",public"`
	// StakeCommitment is the MiMC commitment of the committee table.
	StakeCommitment frontend.Variable `gnark:",public"`

	keys       []bls12377.G1Affine
	weights    []uint64
	threshold  *big.Int
	total      *big.Int
	commitment fr.Element
}

// New builds the circuit for [table] with a [quorumNum]/[quorumDen]
// acceptance threshold. The returned circuit carries the committee as
// constants; use it both to compile the constraint system and, through
// NewAssignment, to build witnesses for certificates over the same table.
func New(table stake.Table, quorumNum uint64, quorumDen uint64) (*Circuit, error) {
	if quorumNum == 0 || quorumDen == 0 || quorumNum > quorumDen {
		return nil, fmt.Errorf("%w: %d/%d", qc.ErrInvalidQuorum, quorumNum, quorumDen)
	}
	if table.Len() == 0 {
		return nil, ErrEmptyCommittee
	}

	keys := make([]bls12377.G1Affine, table.Len())
	weights := make([]uint64, table.Len())
	for i, entry := range table.Entries {
		keys[i] = *entry.PublicKey
		weights[i] = entry.Weight
	}

	// The native rule accepts signedWeight iff
	// quorumNum*totalWeight <= quorumDen*signedWeight, which for integer
	// weights is signedWeight >= ceil(quorumNum*totalWeight/quorumDen).
	den := new(big.Int).SetUint64(quorumDen)
	threshold := new(big.Int).SetUint64(table.TotalWeight)
	threshold.Mul(threshold, new(big.Int).SetUint64(quorumNum))
	threshold.Add(threshold, den)
	threshold.Sub(threshold, big.NewInt(1))
	threshold.Div(threshold, den)

	return &Circuit{
		Bits:       make([]frontend.Variable, table.Len()),
		keys:       keys,
		weights:    weights,
		threshold:  threshold,
		total:      new(big.Int).SetUint64(table.TotalWeight),
		commitment: table.Commitment(),
	}, nil
}

func (c *Circuit) Define(api frontend.API) error {
	for _, bit := range c.Bits {
		api.AssertIsBoolean(bit)
	}

	// The declared signed weight is exactly the weight selected by the bit
	// vector, and it meets the quorum threshold.
	signedWeight := frontend.Variable(0)
	for i, bit := range c.Bits {
		signedWeight = api.Add(signedWeight, api.Mul(bit, c.weights[i]))
	}
	api.AssertIsEqual(signedWeight, c.SignedWeight)
	api.AssertIsLessOrEqual(c.threshold, c.SignedWeight)
	api.AssertIsLessOrEqual(c.SignedWeight, c.total)

	// The digest is checked against the message point outside the circuit,
	// but a public input that appears in no constraint is not bound by a
	// Groth16 proof. Decomposing it wires it into the system.
	_ = api.ToBinary(c.MessageDigest)

	// Bind the committee constants to the public commitment with the same
	// transcript stake.Table.Commitment hashes natively.
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(len(c.keys))
	for i := range c.keys {
		h.Write(c.keys[i].X, c.keys[i].Y, c.weights[i])
	}
	api.AssertIsEqual(h.Sum(), c.StakeCommitment)

	// Accumulate the selected keys. The running sum is offset by the
	// generator so the incomplete affine addition never starts from the
	// point at infinity; the offset is subtracted once the loop ends.
	gen := sw_bls12377.G1Affine{X: g1GenX, Y: g1GenY}
	acc := gen
	for i, bit := range c.Bits {
		sum := acc
		sum.AddAssign(api, sw_bls12377.G1Affine{X: c.keys[i].X, Y: c.keys[i].Y})
		acc.X = api.Select(bit, sum.X, acc.X)
		acc.Y = api.Select(bit, sum.Y, acc.Y)
	}
	var negGen sw_bls12377.G1Affine
	negGen.Neg(api, gen)
	acc.AddAssign(api, negGen)

	// The pairing is only defined for curve points. Subgroup membership is
	// enforced where signatures enter the system, in the decoding path.
	assertOnTwist(api, c.MessagePoint)
	assertOnTwist(api, c.Signature)

	// e(agg, Hm) == e(g1, sig), checked as e(agg, Hm)*e(-g1, sig) == 1.
	return sw_bls12377.PairingCheck(
		api,
		[]sw_bls12377.G1Affine{acc, negGen},
		[]sw_bls12377.G2Affine{c.MessagePoint, c.Signature},
	)
}

// assertOnTwist constrains [q] to satisfy the G2 curve equation
// y^2 = x^3 + b'.
func assertOnTwist(api frontend.API, q sw_bls12377.G2Affine) {
	var left, x2, right fields_bls12377.E2
	left.Square(api, q.P.Y)
	x2.Square(api, q.P.X)
	right.Mul(api, x2, q.P.X)
	right.Add(api, right, fields_bls12377.E2{A0: twistB0, A1: twistB1})
	left.AssertIsEqual(api, right)
}
