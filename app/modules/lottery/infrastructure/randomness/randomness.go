// Package randomness provides the RandomSource implementations the lottery
// draws its winning number from.
package randomness

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/ethereum/go-ethereum/crypto"
)

// Source kinds accepted by New.
const (
	KindHash   = "hash"
	KindSeeded = "seeded"
)

const span = lotterydomain.MaxNumber - lotterydomain.MinNumber + 1

// New builds a RandomSource by kind. salt feeds HashSource; seed feeds
// SeededSource, and a zero seed draws one from crypto/rand.
func New(kind string, salt []byte, seed uint64) (lotterydomain.RandomSource, error) {
	switch kind {
	case "", KindHash:
		return NewHashSource(salt), nil
	case KindSeeded:
		if seed == 0 {
			s, err := NewSeed()
			if err != nil {
				return nil, err
			}
			seed = s
		}
		return NewSeededSource(seed), nil
	}
	return nil, fmt.Errorf("unknown randomness source %q", kind)
}

// HashSource derives the winning number from Keccak-256 over the draw's
// public inputs. Anyone holding the same inputs can recompute it, which also
// means a caller who controls the draw time can predict it. Do not use it
// where stakes justify a commit-reveal or VRF source.
type HashSource struct {
	salt []byte
}

func NewHashSource(salt []byte) *HashSource {
	return &HashSource{salt: append([]byte(nil), salt...)}
}

func (h *HashSource) WinningNumber(_ context.Context, dc lotterydomain.DrawContext) (uint8, error) {
	digest := crypto.Keccak256(h.preimage(dc))
	return reduce(binary.BigEndian.Uint64(digest[24:])), nil
}

func (h *HashSource) preimage(dc lotterydomain.DrawContext) []byte {
	buf := make([]byte, 0, 16+8+8+8+len(h.salt)+len(dc.Entries)*(20+1))
	buf = append(buf, dc.LotteryID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, dc.RoundNumber)
	buf = binary.BigEndian.AppendUint64(buf, uint64(dc.DrawTime.Unix()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(dc.Now.Unix()))
	for _, e := range dc.Entries {
		buf = append(buf, e.Bettor.Bytes()...)
		buf = append(buf, e.Number)
	}
	return append(buf, h.salt...)
}

// SeededSource draws from a PCG generator. It is deterministic for a given
// seed, which makes replays and tests reproducible.
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) WinningNumber(context.Context, lotterydomain.DrawContext) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint8(lotterydomain.MinNumber + s.rng.IntN(span)), nil
}

// NewSeed reads a seed from the operating system's CSPRNG.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to read random seed: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func reduce(v uint64) uint8 {
	return uint8(lotterydomain.MinNumber + v%span)
}
