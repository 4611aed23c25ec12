// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package qc assembles and verifies stake-weighted quorum certificates.
//
// A certificate proves that committee members holding at least a configured
// fraction of the total stake signed a message. Committee members sign the
// canonical encoding of the message's algebraic digest, which the
// certificate carries, so a certificate is verifiable against the committee
// table alone. Assembly collects partial BLS signatures, checks each against
// its claimed table position, and aggregates them into a single signature.
// Verification recomputes the signer weight from the certificate and the
// table; nothing in the certificate is trusted.
//
// The acceptance rule is implemented twice: natively here, and as an
// arithmetic circuit in the circuit package. A certificate accepted by one
// path is accepted by the other.
package qc

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/luxfi/metric"

	"github.com/luxfi/qc/bls"
	"github.com/luxfi/qc/mimc"
	"github.com/luxfi/qc/stake"
)

var (
	ErrInvalidQuorum           = errors.New("quorum fraction is invalid")
	ErrDuplicateSigner         = errors.New("duplicate signer index")
	ErrInvalidPartialSignature = errors.New("partial signature is invalid")
	ErrInsufficientWeight      = errors.New("signature weight is insufficient")
	ErrMalformedCertificate    = errors.New("certificate is malformed")
	ErrWeightMismatch          = errors.New("declared weight does not match signers")
	ErrInvalidSignature        = errors.New("signature is invalid")
	ErrParseSignature          = errors.New("failed to parse signature")
	ErrEncoding                = errors.New("failed to encode certificate")
)

// Partial is one committee member's signature contribution.
type Partial struct {
	// Index is the signer's position in the canonical table.
	Index int
	// Signature is the signer's signature over the canonical encoding of the
	// message digest.
	Signature *bls.Signature
}

// DigestMessage derives the digest of a message. This is the value a
// certificate certifies, and its canonical encoding is what committee
// members sign.
func DigestMessage(msg []byte) mimc.Digest {
	return mimc.NewDigest(mimc.HashBytes(msg))
}

// Scheme assembles and verifies certificates against a fixed quorum
// fraction.
type Scheme struct {
	log       log.Logger
	quorumNum uint64
	quorumDen uint64
	parallel  bool
	metrics   *schemeMetrics
}

type schemeMetrics struct {
	assembled        metric.Counter
	assembleFailures metric.Counter
	verified         metric.Counter
	verifyFailures   metric.Counter
}

// NewScheme creates a scheme that accepts certificates signed by at least
// [quorumNum]/[quorumDen] of a committee's total weight. With [parallel]
// set, assembly verifies partial signatures across GOMAXPROCS goroutines.
func NewScheme(
	log log.Logger,
	registerer metric.Registerer,
	quorumNum uint64,
	quorumDen uint64,
	parallel bool,
) (*Scheme, error) {
	if quorumNum == 0 || quorumDen == 0 || quorumNum > quorumDen {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidQuorum, quorumNum, quorumDen)
	}

	metrics := &schemeMetrics{
		assembled: metric.NewCounter(
			metric.CounterOpts{
				Name: "qc_certificates_assembled",
				Help: "number of certificates assembled",
			},
		),
		assembleFailures: metric.NewCounter(
			metric.CounterOpts{
				Name: "qc_certificate_assemble_failures",
				Help: "number of certificate assembly failures",
			},
		),
		verified: metric.NewCounter(
			metric.CounterOpts{
				Name: "qc_certificates_verified",
				Help: "number of certificates verified",
			},
		),
		verifyFailures: metric.NewCounter(
			metric.CounterOpts{
				Name: "qc_certificate_verify_failures",
				Help: "number of certificate verification failures",
			},
		),
	}

	if err := registerer.Register(metric.AsCollector(metrics.assembled)); err != nil {
		return nil, fmt.Errorf("failed to register assembled metric: %w", err)
	}
	if err := registerer.Register(metric.AsCollector(metrics.assembleFailures)); err != nil {
		return nil, fmt.Errorf("failed to register assemble failures metric: %w", err)
	}
	if err := registerer.Register(metric.AsCollector(metrics.verified)); err != nil {
		return nil, fmt.Errorf("failed to register verified metric: %w", err)
	}
	if err := registerer.Register(metric.AsCollector(metrics.verifyFailures)); err != nil {
		return nil, fmt.Errorf("failed to register verify failures metric: %w", err)
	}

	return &Scheme{
		log:       log,
		quorumNum: quorumNum,
		quorumDen: quorumDen,
		parallel:  parallel,
		metrics:   metrics,
	}, nil
}

// Assemble aggregates [partials] over [msg] into a certificate for [table].
// The partials must be signatures over the canonical encoding of
// DigestMessage(msg).
//
// Every partial signature is verified against its claimed table position
// before aggregation, so a returned certificate always passes Verify
// against the same table.
func (s *Scheme) Assemble(table stake.Table, msg []byte, partials []Partial) (*Certificate, error) {
	cert, err := s.assemble(table, msg, partials)
	if err != nil {
		s.metrics.assembleFailures.Inc()
		s.log.Debug("certificate assembly failed",
			"partials", len(partials),
			"err", err,
		)
		return nil, err
	}

	s.metrics.assembled.Inc()
	s.log.Debug("assembled certificate",
		"signers", cert.NumSigners(),
		"signedWeight", cert.SignedWeight,
	)
	return cert, nil
}

func (s *Scheme) assemble(table stake.Table, msg []byte, partials []Partial) (*Certificate, error) {
	signerIndices := set.NewBits()
	for _, p := range partials {
		if p.Index < 0 || p.Index >= table.Len() {
			return nil, fmt.Errorf(
				"%w: index %d of %d",
				stake.ErrUnknownValidator,
				p.Index,
				table.Len(),
			)
		}
		if signerIndices.Contains(p.Index) {
			return nil, fmt.Errorf("%w: index %d", ErrDuplicateSigner, p.Index)
		}
		signerIndices.Add(p.Index)
	}

	digest := DigestMessage(msg)
	if err := s.verifyPartials(table, digest[:], partials); err != nil {
		return nil, err
	}

	signers, err := table.Filter(signerIndices)
	if err != nil {
		return nil, err
	}

	// Because [signers] is a subset of [table.Entries], this can never error.
	signedWeight, _ := stake.SumWeight(signers)

	if err := VerifyWeight(signedWeight, table.TotalWeight, s.quorumNum, s.quorumDen); err != nil {
		return nil, err
	}

	sigs := make([]*bls.Signature, len(partials))
	for i, p := range partials {
		sigs[i] = p.Signature
	}
	aggSig, err := bls.AggregateSignatures(sigs)
	if err != nil {
		return nil, err
	}

	// Re-check the aggregate so a returned certificate always passes Verify.
	aggPK, err := stake.AggregatePublicKeys(signers)
	if err != nil {
		return nil, err
	}
	if !bls.Verify(aggPK, aggSig, digest[:]) {
		return nil, ErrInvalidSignature
	}

	cert := &Certificate{
		Signers:       signerBitVector(signerIndices, table.Len()),
		SignedWeight:  signedWeight,
		MessageDigest: digest,
	}
	copy(cert.Signature[:], bls.SignatureToBytes(aggSig))
	return cert, nil
}

func (s *Scheme) verifyPartials(table stake.Table, digestBytes []byte, partials []Partial) error {
	if !s.parallel || len(partials) < 2 {
		for _, p := range partials {
			if !bls.Verify(table.Entries[p.Index].PublicKey, p.Signature, digestBytes) {
				return fmt.Errorf("%w: index %d", ErrInvalidPartialSignature, p.Index)
			}
		}
		return nil
	}

	g := errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range partials {
		g.Go(func() error {
			if !bls.Verify(table.Entries[p.Index].PublicKey, p.Signature, digestBytes) {
				return fmt.Errorf("%w: index %d", ErrInvalidPartialSignature, p.Index)
			}
			return nil
		})
	}
	return g.Wait()
}

// Verify checks that [cert] proves a quorum of [table] signed the message
// digested into [cert.MessageDigest].
//
// Certificates cross a trust boundary between assembly and use, so nothing
// in the certificate is trusted: the signer weight is recomputed and the
// aggregate signature is re-verified on every call.
func (s *Scheme) Verify(table stake.Table, cert *Certificate) error {
	if err := s.verify(table, cert); err != nil {
		s.metrics.verifyFailures.Inc()
		s.log.Debug("certificate verification failed", "err", err)
		return err
	}

	s.metrics.verified.Inc()
	return nil
}

func (s *Scheme) verify(table stake.Table, cert *Certificate) error {
	if len(cert.Signers) != BitVectorLen(table.Len()) {
		return fmt.Errorf(
			"%w: bit vector is %d bytes, expected %d",
			ErrMalformedCertificate,
			len(cert.Signers),
			BitVectorLen(table.Len()),
		)
	}

	signerIndices := set.BitsFromBytes(cert.Signers)
	if signerIndices.BitLen() > table.Len() {
		return fmt.Errorf(
			"%w: bit %d is set for a committee of %d",
			ErrMalformedCertificate,
			signerIndices.BitLen()-1,
			table.Len(),
		)
	}

	signers, err := table.Filter(signerIndices)
	if err != nil {
		return err
	}

	// Because [signers] is a subset of [table.Entries], this can never error.
	signedWeight, _ := stake.SumWeight(signers)
	if signedWeight != cert.SignedWeight {
		return fmt.Errorf(
			"%w: certificate declares %d, signers sum to %d",
			ErrWeightMismatch,
			cert.SignedWeight,
			signedWeight,
		)
	}

	if err := VerifyWeight(signedWeight, table.TotalWeight, s.quorumNum, s.quorumDen); err != nil {
		return err
	}

	// The circuit path decodes the digest into a field element, so a digest
	// that only this path would accept is rejected as malformed.
	if _, err := mimc.DigestFromBytes(cert.MessageDigest[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedCertificate, err)
	}

	aggSig, err := bls.SignatureFromBytes(cert.Signature[:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseSignature, err)
	}

	aggPK, err := stake.AggregatePublicKeys(signers)
	if err != nil {
		return err
	}

	if !bls.Verify(aggPK, aggSig, cert.MessageDigest[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyWeight returns nil if [sigWeight] is at least [quorumNum]/[quorumDen]
// of [totalWeight].
func VerifyWeight(
	sigWeight uint64,
	totalWeight uint64,
	quorumNum uint64,
	quorumDen uint64,
) error {
	// Verifies that quorumNum * totalWeight <= quorumDen * sigWeight
	scaledTotalWeight := new(big.Int).SetUint64(totalWeight)
	scaledTotalWeight.Mul(scaledTotalWeight, new(big.Int).SetUint64(quorumNum))
	scaledSigWeight := new(big.Int).SetUint64(sigWeight)
	scaledSigWeight.Mul(scaledSigWeight, new(big.Int).SetUint64(quorumDen))
	if scaledTotalWeight.Cmp(scaledSigWeight) == 1 {
		return fmt.Errorf(
			"%w: %d*%d > %d*%d",
			ErrInsufficientWeight,
			quorumNum,
			totalWeight,
			quorumDen,
			sigWeight,
		)
	}
	return nil
}
