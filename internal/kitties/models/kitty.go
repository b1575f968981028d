package models

import (
	"encoding/hex"
	"strconv"

	dErrors "kitties/pkg/domain-errors"
)

// KittyID identifies a kitty. Ids are issued in strictly increasing order and
// never reused.
type KittyID uint32

// ParseKittyID parses a decimal kitty id.
func ParseKittyID(s string) (KittyID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "kitty ID cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid kitty ID")
	}
	return KittyID(n), nil
}

func (k KittyID) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// GenomeSize is the number of bytes in a genome.
const GenomeSize = 16

// Genome is the immutable 128-bit payload of a kitty.
type Genome [GenomeSize]byte

// ParseGenome decodes a 32 character hex string.
func ParseGenome(s string) (Genome, error) {
	var g Genome
	b, err := hex.DecodeString(s)
	if err != nil {
		return g, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid genome encoding")
	}
	if len(b) != GenomeSize {
		return g, dErrors.New(dErrors.CodeInvalidInput, "genome must be 16 bytes")
	}
	copy(g[:], b)
	return g, nil
}

func (g Genome) String() string {
	return hex.EncodeToString(g[:])
}

// MarshalText renders the genome as lowercase hex in JSON bodies.
func (g Genome) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Genome) UnmarshalText(text []byte) error {
	parsed, err := ParseGenome(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Kitty is never mutated or removed once created.
type Kitty struct {
	ID     KittyID `json:"id"`
	Genome Genome  `json:"genome"`
}
