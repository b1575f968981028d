// Package genome derives kitty genomes from an injected entropy source.
//
// A genome is blake2b-128(seed || caller || nonce). The registry passes the
// id about to be issued as the nonce, so two kitties never share an input
// even when the seed repeats.
package genome

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"kitties/internal/kitties/models"
	id "kitties/pkg/domain"
)

// SeedSource supplies per-call entropy.
type SeedSource interface {
	RandomSeed(ctx context.Context) ([]byte, error)
}

// CryptoSeed reads fresh entropy from the operating system on every call.
type CryptoSeed struct{}

const cryptoSeedSize = 32

func (CryptoSeed) RandomSeed(_ context.Context) ([]byte, error) {
	seed := make([]byte, cryptoSeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	return seed, nil
}

// FixedSeed returns the same seed on every call. Use it where genomes must be
// reproducible.
type FixedSeed []byte

func (s FixedSeed) RandomSeed(_ context.Context) ([]byte, error) {
	return append([]byte(nil), s...), nil
}

// Deriver turns a seed, the caller and a nonce into a genome.
type Deriver struct {
	source SeedSource
}

func NewDeriver(source SeedSource) *Deriver {
	if source == nil {
		source = CryptoSeed{}
	}
	return &Deriver{source: source}
}

// Derive returns blake2b-128(seed || caller || big-endian nonce).
func (d *Deriver) Derive(ctx context.Context, caller id.AccountID, nonce uint64) (models.Genome, error) {
	var out models.Genome

	seed, err := d.source.RandomSeed(ctx)
	if err != nil {
		return out, err
	}

	h, err := blake2b.New(models.GenomeSize, nil)
	if err != nil {
		return out, fmt.Errorf("init blake2b: %w", err)
	}
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	h.Write(seed)
	h.Write(caller.Bytes())
	h.Write(nonceBytes[:])
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Crossover takes each bit from p1 where selector is 1 and from p2 where it
// is 0.
func Crossover(p1, p2, selector models.Genome) models.Genome {
	var child models.Genome
	for i := range child {
		child[i] = (p1[i] & selector[i]) | (p2[i] &^ selector[i])
	}
	return child
}
