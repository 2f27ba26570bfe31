package id

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUID generates a random (version 4) UUID string.
func UUID() string {
	return uuid.NewString()
}

// Short generates a short random hex ID (16 characters).
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Sequence generates correlation identifiers of the form "<prefix>.<n>",
// where prefix is random per Sequence and n is a base-36 counter.
//
// A Sequence is safe for concurrent use.
type Sequence struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequence creates a Sequence with a fresh random prefix.
func NewSequence() *Sequence {
	u := uuid.New()
	return &Sequence{prefix: hex.EncodeToString(u[:6])}
}

// Next returns the next identifier in the sequence.
func (s *Sequence) Next() string {
	n := s.counter.Add(1)
	return s.prefix + "." + strconv.FormatUint(n, 36)
}

// Prefix returns the random prefix shared by all identifiers of s.
func (s *Sequence) Prefix() string {
	return s.prefix
}

// Owns reports whether id was produced by s.
func (s *Sequence) Owns(id string) bool {
	rest, ok := strings.CutPrefix(id, s.prefix+".")
	if !ok || rest == "" {
		return false
	}
	n, err := strconv.ParseUint(rest, 36, 64)
	return err == nil && n > 0 && n <= s.counter.Load()
}
