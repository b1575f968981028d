package genome

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
	"pgregory.net/rapid"

	"kitties/internal/kitties/models"
	id "kitties/pkg/domain"
	"kitties/pkg/testutil"
)

type failingSeed struct{}

func (failingSeed) RandomSeed(context.Context) ([]byte, error) {
	return nil, errors.New("no entropy")
}

func TestDerive(t *testing.T) {
	ctx := context.Background()
	caller := id.NewAccountID()

	testutil.Given(t, "a fixed seed", func(t *testing.T) {
		d := NewDeriver(FixedSeed("seed"))

		testutil.Then(t, "the digest is blake2b-128 of seed, caller and nonce", func(t *testing.T) {
			got, err := d.Derive(ctx, caller, 1)
			require.NoError(t, err)

			h, err := blake2b.New(16, nil)
			require.NoError(t, err)
			h.Write([]byte("seed"))
			h.Write(caller.Bytes())
			h.Write([]byte{0, 0, 0, 0, 0, 0, 0, 1})
			assert.Equal(t, h.Sum(nil), got[:])
		})

		testutil.Then(t, "the same inputs give the same genome", func(t *testing.T) {
			a, err := d.Derive(ctx, caller, 7)
			require.NoError(t, err)
			b, err := d.Derive(ctx, caller, 7)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})

		testutil.Then(t, "a different nonce or caller changes the genome", func(t *testing.T) {
			a, _ := d.Derive(ctx, caller, 7)
			b, _ := d.Derive(ctx, caller, 8)
			c, _ := d.Derive(ctx, id.NewAccountID(), 7)
			assert.NotEqual(t, a, b)
			assert.NotEqual(t, a, c)
		})
	})

	testutil.Given(t, "a failing seed source", func(t *testing.T) {
		_, err := NewDeriver(failingSeed{}).Derive(ctx, caller, 0)
		assert.Error(t, err)
	})

	testutil.Given(t, "process entropy", func(t *testing.T) {
		d := NewDeriver(nil)
		a, err := d.Derive(ctx, caller, 0)
		require.NoError(t, err)
		b, err := d.Derive(ctx, caller, 0)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestCrossover(t *testing.T) {
	p1 := models.Genome{0xff, 0x00, 0xf0}
	p2 := models.Genome{0x00, 0xff, 0x0f}
	sel := models.Genome{0xaa, 0xaa, 0xff}

	child := Crossover(p1, p2, sel)
	assert.Equal(t, byte(0xaa), child[0])
	assert.Equal(t, byte(0x55), child[1])
	assert.Equal(t, byte(0xf0), child[2])
	assert.Equal(t, byte(0x00), child[3])
}

func TestCrossoverProperties(t *testing.T) {
	genomeGen := rapid.Custom(func(t *rapid.T) models.Genome {
		var g models.Genome
		copy(g[:], rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "bytes"))
		return g
	})

	rapid.Check(t, func(t *rapid.T) {
		p1 := genomeGen.Draw(t, "p1")
		p2 := genomeGen.Draw(t, "p2")
		sel := genomeGen.Draw(t, "sel")

		child := Crossover(p1, p2, sel)
		for i := range child {
			// every bit comes from one parent
			if child[i]&^(p1[i]|p2[i]) != 0 {
				t.Fatalf("lane %d has a bit neither parent carries", i)
			}
			if (child[i]^p1[i])&sel[i] != 0 || (child[i]^p2[i])&^sel[i] != 0 {
				t.Fatalf("lane %d does not follow the selector", i)
			}
		}
		if Crossover(p1, p1, sel) != p1 {
			t.Fatalf("self crossover must be identity")
		}
	})
}
