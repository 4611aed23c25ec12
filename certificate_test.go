// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package qc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/math/set"
)

func TestCertificateRoundTrip(t *testing.T) {
	require := require.New(t)

	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})
	scheme := newTestScheme(t, 3, 4, false)

	cert, err := scheme.Assemble(committee.table, testMsg, committee.sign(t, testMsg, 0, 2, 3))
	require.NoError(err)

	b, err := cert.Bytes()
	require.NoError(err)

	parsed, err := ParseCertificate(b)
	require.NoError(err)
	require.Equal(cert, parsed)

	reserialized, err := parsed.Bytes()
	require.NoError(err)
	require.Equal(b, reserialized)

	require.NoError(scheme.Verify(committee.table, parsed))
}

func TestParseCertificateRejects(t *testing.T) {
	require := require.New(t)

	committee := newTestCommittee(t, []uint64{1, 1, 1, 1})
	scheme := newTestScheme(t, 3, 4, false)

	cert, err := scheme.Assemble(committee.table, testMsg, committee.sign(t, testMsg, 0, 1, 2))
	require.NoError(err)

	b, err := cert.Bytes()
	require.NoError(err)

	type test struct {
		name  string
		bytes []byte
	}

	tests := []test{
		{"empty", nil},
		{"truncated", b[:len(b)-1]},
		{"trailing bytes", append(append([]byte{}, b...), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCertificate(tt.bytes)
			require.ErrorIs(err, ErrEncoding)
		})
	}
}

func TestNumSigners(t *testing.T) {
	require := require.New(t)

	require.Zero((&Certificate{Signers: []byte{0x00}}).NumSigners())
	require.Equal(2, (&Certificate{Signers: []byte{0x05}}).NumSigners())
	require.Equal(4, (&Certificate{Signers: []byte{0x0F}}).NumSigners())
	require.Equal(9, (&Certificate{Signers: []byte{0x01, 0xFF}}).NumSigners())
}

func TestBitVectorLen(t *testing.T) {
	type test struct {
		size        int
		expectedLen int
	}

	tests := []test{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{16, 2},
		{17, 3},
		{1 << 16, 1 << 13},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expectedLen, BitVectorLen(tt.size), "size %d", tt.size)
	}
}

func TestSignerBitVector(t *testing.T) {
	type test struct {
		name     string
		indices  []int
		size     int
		expected []byte
	}

	tests := []test{
		{
			name:     "empty",
			indices:  nil,
			size:     4,
			expected: []byte{0x00},
		},
		{
			name:     "low bits",
			indices:  []int{0, 1, 2},
			size:     4,
			expected: []byte{0x07},
		},
		{
			name:     "zero padded to full width",
			indices:  []int{0},
			size:     9,
			expected: []byte{0x00, 0x01},
		},
		{
			name:     "high byte",
			indices:  []int{8},
			size:     9,
			expected: []byte{0x01, 0x00},
		},
		{
			name:     "both bytes",
			indices:  []int{0, 8},
			size:     16,
			expected: []byte{0x01, 0x01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector := signerBitVector(set.NewBits(tt.indices...), tt.size)
			require.Equal(t, tt.expected, vector)
		})
	}
}
