package signaling

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIDGenerator_Format(t *testing.T) {
	req := require.New(t)
	pattern := regexp.MustCompile(`^[a-z]+-[a-z0-9]{4}$`)
	gen := NewIDGenerator("")

	for range 50 {
		id := gen(func(string) bool { return false })
		req.Regexp(pattern, id)
	}
}

func TestNewIDGenerator_Prefix(t *testing.T) {
	id := NewIDGenerator("assma")(func(string) bool { return false })
	require.Regexp(t, `^assma-[a-z0-9]{4}$`, id)
}

func TestNewIDGenerator_RetriesOnCollision(t *testing.T) {
	req := require.New(t)
	calls := 0

	id := NewIDGenerator("assma")(func(string) bool {
		calls++
		return calls < 3
	})

	req.Equal(3, calls)
	req.Regexp(`^assma-[a-z0-9]{4}$`, id)
}
