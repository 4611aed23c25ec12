// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stake models the committee a quorum certificate is checked
// against: an ordered table of verification keys and voting weights. The
// position of an entry in the table is the signer identity used by
// certificate bit vectors, so the ordering is canonical and immutable for
// the lifetime of an epoch.
package stake

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
	"github.com/luxfi/utils"
	"github.com/luxfi/utils/math"

	"github.com/luxfi/qc/bls"
	"github.com/luxfi/qc/mimc"
)

// MaxCommitteeSize bounds the table so a bit-vector index always fits the
// fixed weight encoding on both verification paths.
const MaxCommitteeSize = 1 << 16

var (
	_ utils.Sortable[*Entry] = (*Entry)(nil)

	ErrUnknownValidator  = errors.New("unknown validator")
	ErrWeightOverflow    = errors.New("weight overflowed")
	ErrCommitteeTooLarge = errors.New("committee is too large")
)

// Member is one committee member as reported by the consensus layer.
type Member struct {
	NodeID ids.NodeID
	// PublicKey is the uncompressed serialization of the member's BLS
	// public key. Members without a usable key keep their weight in the
	// total but cannot appear in a certificate.
	PublicKey []byte
	Weight    uint64
}

// Entry is one canonical table position.
type Entry struct {
	PublicKey      *bls.PublicKey
	PublicKeyBytes []byte
	Weight         uint64
	NodeIDs        []ids.NodeID
}

func (e *Entry) Compare(o *Entry) int {
	return bytes.Compare(e.PublicKeyBytes, o.PublicKeyBytes)
}

// Table is the canonical committee for one epoch.
type Table struct {
	// Entries in canonical ordering of the members that have a public key.
	Entries []*Entry
	// TotalWeight of all members, including the ones without a public key.
	TotalWeight uint64
}

// NewTable converts [members] into a canonical table. Members sharing a
// public key are merged into one entry with their weights added; entries are
// sorted by public-key bytes.
func NewTable(members map[ids.NodeID]*Member) (Table, error) {
	if len(members) > MaxCommitteeSize {
		return Table{}, fmt.Errorf("%w: %d members, maximum %d", ErrCommitteeTooLarge, len(members), MaxCommitteeSize)
	}

	var (
		pkToEntry   = make(map[string]*Entry)
		totalWeight uint64
		err         error
	)
	for _, member := range members {
		totalWeight, err = math.Add(totalWeight, member.Weight)
		if err != nil {
			return Table{}, fmt.Errorf("%w: %w", ErrWeightOverflow, err)
		}

		if len(member.PublicKey) == 0 {
			continue
		}

		pk := bls.PublicKeyFromValidUncompressedBytes(member.PublicKey)
		if pk == nil {
			continue
		}

		pkBytes := bls.PublicKeyToUncompressedBytes(pk)
		pkKey := string(pkBytes)

		if entry, ok := pkToEntry[pkKey]; ok {
			entry.Weight, err = math.Add(entry.Weight, member.Weight)
			if err != nil {
				return Table{}, fmt.Errorf("%w: %w", ErrWeightOverflow, err)
			}
			entry.NodeIDs = append(entry.NodeIDs, member.NodeID)
		} else {
			pkToEntry[pkKey] = &Entry{
				PublicKey:      pk,
				PublicKeyBytes: pkBytes,
				Weight:         member.Weight,
				NodeIDs:        []ids.NodeID{member.NodeID},
			}
		}
	}

	entries := slices.Collect(maps.Values(pkToEntry))
	utils.Sort(entries)
	return Table{Entries: entries, TotalWeight: totalWeight}, nil
}

func (t Table) Len() int {
	return len(t.Entries)
}

// Filter returns the entries whose bit is set to 1 in [indices].
//
// Returns an error if [indices] references an unknown table position.
func (t Table) Filter(indices set.Bits) ([]*Entry, error) {
	if indices.BitLen() > len(t.Entries) {
		return nil, fmt.Errorf(
			"%w: index %d of %d",
			ErrUnknownValidator,
			indices.BitLen()-1,
			len(t.Entries),
		)
	}

	filtered := make([]*Entry, 0, len(t.Entries))
	for i, entry := range t.Entries {
		if !indices.Contains(i) {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered, nil
}

// SumWeight returns the total weight of the provided entries.
func SumWeight(entries []*Entry) (uint64, error) {
	var (
		weight uint64
		err    error
	)
	for _, entry := range entries {
		weight, err = math.Add(weight, entry.Weight)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrWeightOverflow, err)
		}
	}
	return weight, nil
}

// AggregatePublicKeys returns the aggregate public key of the provided
// entries.
//
// Invariant: all of the public keys in [entries] are valid.
func AggregatePublicKeys(entries []*Entry) (*bls.PublicKey, error) {
	pks := make([]*bls.PublicKey, len(entries))
	for i, entry := range entries {
		pks[i] = entry.PublicKey
	}
	return bls.AggregatePublicKeys(pks)
}

// Commitment binds the table into one field element: MiMC over the entry
// count, then each entry's public-key coordinates and weight in canonical
// order. The circuit gadget recomputes the identical transcript from its
// baked-in constants, so a proof is only satisfiable against the exact
// table it was built for.
func (t Table) Commitment() fr.Element {
	h := mimc.New()

	var e fr.Element
	e.SetUint64(uint64(len(t.Entries)))
	h.Write(e)

	for _, entry := range t.Entries {
		x := entry.PublicKey.X.Bytes()
		e.SetBytes(x[:])
		h.Write(e)

		y := entry.PublicKey.Y.Bytes()
		e.SetBytes(y[:])
		h.Write(e)

		e.SetUint64(entry.Weight)
		h.Write(e)
	}
	return h.Sum()
}
