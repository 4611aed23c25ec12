// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package localsigner signs with an in-memory secret key.
package localsigner

import (
	"github.com/luxfi/qc/bls"
)

var _ bls.Signer = (*LocalSigner)(nil)

type LocalSigner struct {
	sk *bls.SecretKey
	pk *bls.PublicKey
}

// New generates a fresh secret key and wraps it in a signer.
func New() (*LocalSigner, error) {
	sk, err := bls.NewSecretKey()
	if err != nil {
		return nil, err
	}
	return &LocalSigner{
		sk: sk,
		pk: bls.PublicFromSecretKey(sk),
	}, nil
}

// FromBytes wraps a previously serialized secret key in a signer.
func FromBytes(skBytes []byte) (*LocalSigner, error) {
	sk, err := bls.SecretKeyFromBytes(skBytes)
	if err != nil {
		return nil, err
	}
	return &LocalSigner{
		sk: sk,
		pk: bls.PublicFromSecretKey(sk),
	}, nil
}

func (s *LocalSigner) PublicKey() *bls.PublicKey {
	return s.pk
}

func (s *LocalSigner) Sign(msg []byte) (*bls.Signature, error) {
	return bls.Sign(s.sk, msg)
}

func (s *LocalSigner) SignProofOfPossession(msg []byte) (*bls.Signature, error) {
	return bls.SignProofOfPossession(s.sk, msg)
}

// ToBytes serializes the secret key for storage.
func (s *LocalSigner) ToBytes() []byte {
	return bls.SecretKeyToBytes(s.sk)
}
