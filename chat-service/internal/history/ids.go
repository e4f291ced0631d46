package history

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator issues lexicographically sortable message ids. Ids issued
// within the same millisecond stay strictly increasing.
type IDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *IDGenerator) New(t time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}
	return id.String(), nil
}

// ValidCursor reports whether s can be used as an afterId.
func ValidCursor(s string) bool {
	if s == "" {
		return true
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}
