package identity

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Provider hands out primary keys for appointments, blocks, staff and
// recurrence series.
type Provider interface {
	NewID() string
}

type uuidProvider struct{}

// NewUUIDProvider returns the production provider backed by random UUIDs.
func NewUUIDProvider() Provider {
	return uuidProvider{}
}

func (uuidProvider) NewID() string {
	return uuid.NewString()
}

// Sequence is a deterministic provider for tests: prefix-1, prefix-2, ...
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next)
}
