// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stake

import (
	"bytes"
	"errors"

	"github.com/luxfi/ids"
	"github.com/luxfi/utils"

	"github.com/luxfi/qc/bls"
	"github.com/luxfi/qc/bls/signer/localsigner"
)

const testHeight uint64 = 1337

var (
	errTest     = errors.New("non-nil error")
	testMembers []*testMember
)

type testMember struct {
	signer *localsigner.LocalSigner
	member *Member
	entry  *Entry
}

func (m *testMember) Compare(other *testMember) int {
	return bytes.Compare(m.entry.PublicKeyBytes, other.entry.PublicKeyBytes)
}

func newTestMember() *testMember {
	signer, err := localsigner.New()
	if err != nil {
		panic(err)
	}

	nodeID := ids.GenerateTestNodeID()
	pk := signer.PublicKey()
	pkBytes := bls.PublicKeyToUncompressedBytes(pk)
	return &testMember{
		signer: signer,
		member: &Member{
			NodeID:    nodeID,
			PublicKey: pkBytes,
			Weight:    3,
		},
		entry: &Entry{
			PublicKey:      pk,
			PublicKeyBytes: pkBytes,
			Weight:         3,
			NodeIDs:        []ids.NodeID{nodeID},
		},
	}
}

func init() {
	testMembers = []*testMember{
		newTestMember(),
		newTestMember(),
		newTestMember(),
	}
	utils.Sort(testMembers)
}
