package registry

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// codeAlphabet is the 36-symbol alphabet join codes are drawn from.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the fixed length of a session join code.
const CodeLength = 4

// codeGenerator produces candidate join codes from an injectable rand source.
// The source is guarded by a mutex because *rand.Rand is not safe for
// concurrent use.
type codeGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// newCodeGenerator returns a generator backed by rng. A nil rng is seeded
// from crypto-quality entropy; tests pass a deterministic source.
func newCodeGenerator(rng *rand.Rand) *codeGenerator {
	if rng == nil {
		var seed [8]byte
		if _, err := crand.Read(seed[:]); err != nil {
			// Entropy failure means the process environment is broken.
			panic("registry: crypto/rand failed: " + err.Error())
		}
		rng = rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
	}
	return &codeGenerator{rng: rng}
}

// Next returns a candidate code: CodeLength independent uniform draws over
// the alphabet. Uniqueness against live sessions is the registry's job.
func (g *codeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, CodeLength)
	for i := range buf {
		buf[i] = codeAlphabet[g.rng.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

// ValidCode reports whether code has the shape of a join code: exactly
// CodeLength characters, all from the uppercase alphanumeric alphabet.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
