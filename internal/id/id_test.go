package id

import (
	"regexp"
	"strings"
	"sync"
	"testing"
)

func TestUUID_Format(t *testing.T) {
	id := UUID()

	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidRegex.MatchString(id) {
		t.Errorf("UUID() = %q, does not match UUID v4 format", id)
	}
}

func TestShort_Length(t *testing.T) {
	if got := len(Short()); got != 16 {
		t.Errorf("Short() length = %d, want 16", got)
	}
}

func TestSequence_Format(t *testing.T) {
	s := NewSequence()
	first := s.Next()
	second := s.Next()

	if !strings.HasPrefix(first, s.Prefix()+".") {
		t.Errorf("Next() = %q, want prefix %q", first, s.Prefix())
	}
	if first == second {
		t.Errorf("Next() returned %q twice", first)
	}
	if want := s.Prefix() + ".2"; second != want {
		t.Errorf("second Next() = %q, want %q", second, want)
	}
}

func TestSequence_DistinctPrefixes(t *testing.T) {
	a, b := NewSequence(), NewSequence()
	if a.Prefix() == b.Prefix() {
		t.Fatalf("two sequences share prefix %q", a.Prefix())
	}
	if a.Next() == b.Next() {
		t.Error("first identifiers of two sequences collide")
	}
}

func TestSequence_Owns(t *testing.T) {
	a, b := NewSequence(), NewSequence()
	id := a.Next()

	if !a.Owns(id) {
		t.Errorf("a.Owns(%q) = false, want true", id)
	}
	if b.Owns(id) {
		t.Errorf("b.Owns(%q) = true, want false", id)
	}
	if a.Owns(a.Prefix() + ".zz") {
		t.Error("Owns accepted an identifier that was never issued")
	}
	if a.Owns("garbage") {
		t.Error("Owns accepted garbage")
	}
}

func TestSequence_Concurrent(t *testing.T) {
	s := NewSequence()
	const workers, per = 8, 500

	var mu sync.Mutex
	seen := make(map[string]bool, workers*per)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, per)
			for range per {
				local = append(local, s.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate identifier %q", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*per {
		t.Errorf("got %d identifiers, want %d", len(seen), workers*per)
	}
}
