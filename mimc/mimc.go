// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mimc hashes BW6-761 scalar field elements with the MiMC
// permutation. The same function is available as a gnark gadget, so digests
// computed here can be recomputed inside a circuit over the same field with
// a constraint count that depends only on the number of inputs.
package mimc

import (
	"errors"
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	frmimc "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
)

// DigestLen is the byte length of a digest: one canonical field element.
const DigestLen = fr.Bytes

var ErrInvalidDigest = errors.New("digest is not a canonical field element")

// Digest is the big-endian canonical encoding of a field element.
type Digest [DigestLen]byte

// DigestFromBytes validates and copies a serialized digest. Only canonical
// encodings are accepted, so that a digest deserializes to exactly one field
// element on both verification paths.
func DigestFromBytes(b []byte) (Digest, error) {
	if len(b) != DigestLen {
		return Digest{}, fmt.Errorf("%w: length %d, expected %d", ErrInvalidDigest, len(b), DigestLen)
	}
	var e fr.Element
	if err := e.SetBytesCanonical(b); err != nil {
		return Digest{}, fmt.Errorf("%w: %w", ErrInvalidDigest, err)
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}

// NewDigest encodes a field element.
func NewDigest(e fr.Element) Digest {
	return Digest(e.Bytes())
}

// Element decodes the digest back into a field element.
func (d Digest) Element() fr.Element {
	var e fr.Element
	e.SetBytes(d[:])
	return e
}

func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// Hasher is an incremental MiMC hash over field elements.
type Hasher struct {
	inner hash.Hash
}

func New() *Hasher {
	return &Hasher{inner: frmimc.NewMiMC()}
}

// Write absorbs one field element.
func (h *Hasher) Write(e fr.Element) {
	b := e.Bytes()
	// A canonical block is always below the modulus, so Write cannot fail.
	_, _ = h.inner.Write(b[:])
}

// Sum squeezes the digest of everything absorbed so far.
func (h *Hasher) Sum() fr.Element {
	var e fr.Element
	e.SetBytes(h.inner.Sum(nil))
	return e
}

func (h *Hasher) Reset() {
	h.inner.Reset()
}

// Hash returns the MiMC digest of the given elements.
func Hash(elems ...fr.Element) fr.Element {
	h := New()
	for _, e := range elems {
		h.Write(e)
	}
	return h.Sum()
}

// HashBytes digests an arbitrary byte string, for deriving the field-element
// digest of a consensus artifact. Bytes are packed big-endian into chunks one
// byte short of the field width, so every chunk is canonical, and the input
// length is absorbed last to keep different chunkings of the same prefix from
// colliding.
func HashBytes(data []byte) fr.Element {
	const chunk = fr.Bytes - 1

	h := New()
	var (
		e   fr.Element
		buf [fr.Bytes]byte
	)
	for rest := data; len(rest) > 0; {
		n := min(chunk, len(rest))
		clear(buf[:])
		copy(buf[fr.Bytes-n:], rest[:n])
		e.SetBytes(buf[:])
		h.Write(e)
		rest = rest[n:]
	}
	e.SetUint64(uint64(len(data)))
	h.Write(e)
	return h.Sum()
}
