// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package circuit

import (
	"slices"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/hash/mimc"
	gnarktest "github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/qc"
	"github.com/luxfi/qc/bls"
	"github.com/luxfi/qc/bls/signer/localsigner"
	qcmimc "github.com/luxfi/qc/mimc"
	"github.com/luxfi/qc/stake"
)

var testMsg = []byte("committee signed payload")

type testCommittee struct {
	table stake.Table
	// signers[i] controls the key at table position i.
	signers []*localsigner.LocalSigner
}

func newTestCommittee(t *testing.T, weights []uint64) *testCommittee {
	require := require.New(t)

	members := make(map[ids.NodeID]*stake.Member, len(weights))
	signerByPK := make(map[string]*localsigner.LocalSigner, len(weights))
	for _, weight := range weights {
		signer, err := localsigner.New()
		require.NoError(err)

		nodeID := ids.GenerateTestNodeID()
		pkBytes := bls.PublicKeyToUncompressedBytes(signer.PublicKey())
		members[nodeID] = &stake.Member{
			NodeID:    nodeID,
			PublicKey: pkBytes,
			Weight:    weight,
		}
		signerByPK[string(pkBytes)] = signer
	}

	table, err := stake.NewTable(members)
	require.NoError(err)

	signers := make([]*localsigner.LocalSigner, table.Len())
	for i, entry := range table.Entries {
		signers[i] = signerByPK[string(entry.PublicKeyBytes)]
	}
	return &testCommittee{
		table:   table,
		signers: signers,
	}
}

func (c *testCommittee) sign(t *testing.T, indices ...int) []qc.Partial {
	digest := qc.DigestMessage(testMsg)
	partials := make([]qc.Partial, len(indices))
	for i, index := range indices {
		sig, err := c.signers[index].Sign(digest[:])
		require.NoError(t, err)
		partials[i] = qc.Partial{
			Index:     index,
			Signature: sig,
		}
	}
	return partials
}

func (c *testCommittee) assemble(t *testing.T, quorumNum uint64, quorumDen uint64, indices ...int) *qc.Certificate {
	require := require.New(t)

	scheme, err := qc.NewScheme(log.NewNoOpLogger(), metric.NewRegistry(), quorumNum, quorumDen, false)
	require.NoError(err)

	cert, err := scheme.Assemble(c.table, testMsg, c.sign(t, indices...))
	require.NoError(err)
	return cert
}

func TestNewRejects(t *testing.T) {
	require := require.New(t)

	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})

	_, err := New(committee.table, 0, 4)
	require.ErrorIs(err, qc.ErrInvalidQuorum)

	_, err = New(committee.table, 5, 4)
	require.ErrorIs(err, qc.ErrInvalidQuorum)

	_, err = New(stake.Table{}, 3, 4)
	require.ErrorIs(err, ErrEmptyCommittee)
}

func TestCircuitSatisfied(t *testing.T) {
	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})
	gadget, err := New(committee.table, 3, 4)
	require.NoError(t, err)

	type test struct {
		name    string
		indices []int
	}

	tests := []test{
		{"three of four", []int{0, 1, 2}},
		{"other three of four", []int{0, 2, 3}},
		{"full committee", []int{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			cert := committee.assemble(t, 3, 4, tt.indices...)
			assignment, err := gadget.NewAssignment(cert)
			require.NoError(err)

			require.NoError(gnarktest.IsSolved(gadget, assignment, ecc.BW6_761.ScalarField()))
		})
	}
}

func TestCircuitUnsatisfied(t *testing.T) {
	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})
	cert := committee.assemble(t, 3, 4, 0, 1, 2)

	gadget, err := New(committee.table, 3, 4)
	require.NoError(t, err)

	// A valid aggregate for the below-quorum subset {0, 1}.
	low := committee.sign(t, 0, 1)
	lowAgg, err := bls.AggregateSignatures([]*bls.Signature{
		low[0].Signature,
		low[1].Signature,
	})
	require.NoError(t, err)

	otherDigest := qc.DigestMessage([]byte("other payload"))
	otherPoint, err := bls.HashToPoint(otherDigest[:])
	require.NoError(t, err)

	shiftedCommitment := committee.table.Commitment()
	var one fr.Element
	one.SetOne()
	shiftedCommitment.Add(&shiftedCommitment, &one)

	type test struct {
		name   string
		mutate func(*Circuit)
	}

	tests := []test{
		{
			name: "non boolean bit",
			mutate: func(w *Circuit) {
				w.Bits[0] = 2
			},
		},
		{
			name: "bit added without weight",
			mutate: func(w *Circuit) {
				w.Bits[3] = 1
			},
		},
		{
			name: "declared weight inflated",
			mutate: func(w *Circuit) {
				w.SignedWeight = 4
			},
		},
		{
			name: "below quorum with consistent weight",
			mutate: func(w *Circuit) {
				w.Bits = []frontend.Variable{1, 1, 0, 0}
				w.SignedWeight = 2
				w.Signature = sw_bls12377.NewG2Affine(*lowAgg)
			},
		},
		{
			name: "stake commitment shifted",
			mutate: func(w *Circuit) {
				w.StakeCommitment = shiftedCommitment
			},
		},
		{
			name: "wrong message point",
			mutate: func(w *Circuit) {
				w.MessagePoint = sw_bls12377.NewG2Affine(*otherPoint)
			},
		},
		{
			name: "signature for a different subset",
			mutate: func(w *Circuit) {
				w.Signature = sw_bls12377.NewG2Affine(*lowAgg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			assignment, err := gadget.NewAssignment(cert)
			require.NoError(err)
			tt.mutate(assignment)

			require.Error(gnarktest.IsSolved(gadget, assignment, ecc.BW6_761.ScalarField()))
		})
	}
}

func TestNewAssignmentRejects(t *testing.T) {
	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})
	cert := committee.assemble(t, 3, 4, 0, 1, 2)

	gadget, err := New(committee.table, 3, 4)
	require.NoError(t, err)

	type test struct {
		name   string
		mutate func(*qc.Certificate)
	}

	tests := []test{
		{
			name: "bit vector too short",
			mutate: func(c *qc.Certificate) {
				c.Signers = nil
			},
		},
		{
			name: "bit vector too long",
			mutate: func(c *qc.Certificate) {
				c.Signers = append(c.Signers, 0x00)
			},
		},
		{
			name: "padding bit set",
			mutate: func(c *qc.Certificate) {
				c.Signers[0] |= 0x10
			},
		},
		{
			name: "undecodable signature",
			mutate: func(c *qc.Certificate) {
				c.Signature = [bls.SignatureLen]byte{}
			},
		},
		{
			name: "non canonical digest",
			mutate: func(c *qc.Certificate) {
				for i := range c.MessageDigest {
					c.MessageDigest[i] = 0xFF
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			mutated := *cert
			mutated.Signers = slices.Clone(cert.Signers)
			tt.mutate(&mutated)

			_, err := gadget.NewAssignment(&mutated)
			require.ErrorIs(err, ErrInvalidWitness)
		})
	}
}

// A tampered certificate that still decodes produces an unsatisfiable
// witness rather than an assignment error, mirroring the rejections the
// native path reports as errors.
func TestTamperedCertificateUnsatisfiable(t *testing.T) {
	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})
	cert := committee.assemble(t, 3, 4, 0, 1, 2)

	gadget, err := New(committee.table, 3, 4)
	require.NoError(t, err)

	wrong := committee.sign(t, 3)

	type test struct {
		name   string
		mutate func(*qc.Certificate)
	}

	tests := []test{
		{
			name: "declared weight inflated",
			mutate: func(c *qc.Certificate) {
				c.SignedWeight++
			},
		},
		{
			name: "digest of a different message",
			mutate: func(c *qc.Certificate) {
				c.MessageDigest = qc.DigestMessage([]byte("other payload"))
			},
		},
		{
			name: "signature replaced",
			mutate: func(c *qc.Certificate) {
				copy(c.Signature[:], bls.SignatureToBytes(wrong[0].Signature))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			tampered := *cert
			tampered.Signers = slices.Clone(cert.Signers)
			tt.mutate(&tampered)

			assignment, err := gadget.NewAssignment(&tampered)
			require.NoError(err)
			require.Error(gnarktest.IsSolved(gadget, assignment, ecc.BW6_761.ScalarField()))
		})
	}
}

type mimcCircuit struct {
	In  []frontend.Variable
	Out frontend.Variable `gnark:",public"`
}

func (c *mimcCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.In...)
	api.AssertIsEqual(h.Sum(), c.Out)
	return nil
}

// The in-circuit MiMC gadget computes the same function as the native
// hasher, which is what binds the stake commitment across both paths.
func TestMimcMatchesNative(t *testing.T) {
	require := require.New(t)

	elems := make([]fr.Element, 5)
	for i := range elems {
		_, err := elems[i].SetRandom()
		require.NoError(err)
	}

	in := make([]frontend.Variable, len(elems))
	for i := range elems {
		in[i] = elems[i]
	}

	circuit := &mimcCircuit{In: make([]frontend.Variable, len(elems))}
	assignment := &mimcCircuit{
		In:  in,
		Out: qcmimc.Hash(elems...),
	}
	require.NoError(gnarktest.IsSolved(circuit, assignment, ecc.BW6_761.ScalarField()))
}

func TestCompile(t *testing.T) {
	require := require.New(t)

	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})
	gadget, err := New(committee.table, 3, 4)
	require.NoError(err)

	ccs, err := Compile(gadget)
	require.NoError(err)
	require.NotZero(ccs.GetNbConstraints())
}
