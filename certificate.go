// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package qc

import (
	"fmt"

	"github.com/luxfi/math/set"

	"github.com/luxfi/qc/bls"
	"github.com/luxfi/qc/mimc"
)

// BitVectorLen returns the serialized length of a signer bit vector over a
// committee of [size] members.
func BitVectorLen(size int) int {
	return (size + 7) / 8
}

// Certificate attests that a quorum of a committee signed a message.
//
// The bit vector is always BitVectorLen(N) bytes for a committee of N
// members, with bit i set when table position i contributed a partial
// signature. The width is part of the certificate format, so two
// certificates over the same committee always serialize to the same length.
type Certificate struct {
	// Signers is a big-endian byte slice encoding which committee members
	// signed this message.
	Signers []byte `serialize:"true"`
	// Signature is the aggregate of the signers' partial signatures.
	Signature [bls.SignatureLen]byte `serialize:"true"`
	// SignedWeight is the total weight of the signers.
	SignedWeight uint64 `serialize:"true"`
	// MessageDigest is the algebraic digest of the certified message. The
	// aggregate signature is over its canonical encoding, so the certificate
	// carries everything verification needs.
	MessageDigest mimc.Digest `serialize:"true"`
}

// NumSigners is the number of committee members that participated in the
// certificate. This is exposed because users of these certificates typically
// impose a verification fee that is a function of the number of signers.
func (c *Certificate) NumSigners() int {
	return set.BitsFromBytes(c.Signers).Len()
}

// Bytes returns the canonical serialization of the certificate.
func (c *Certificate) Bytes() ([]byte, error) {
	b, err := Codec.Marshal(CodecVersion, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return b, nil
}

// ParseCertificate decodes a certificate from its canonical serialization.
func ParseCertificate(b []byte) (*Certificate, error) {
	cert := &Certificate{}
	if _, err := Codec.Unmarshal(b, cert); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return cert, nil
}

func (c *Certificate) String() string {
	return fmt.Sprintf(
		"Certificate(Signers = %x, Signature = %x, SignedWeight = %d, MessageDigest = %x)",
		c.Signers,
		c.Signature,
		c.SignedWeight,
		c.MessageDigest,
	)
}

// signerBitVector packs [indices] into the fixed-width vector for a
// committee of [size] members.
//
// Invariant: every index in [indices] is below [size].
func signerBitVector(indices set.Bits, size int) []byte {
	vector := make([]byte, BitVectorLen(size))
	packed := indices.Bytes()
	copy(vector[len(vector)-len(packed):], packed)
	return vector
}
