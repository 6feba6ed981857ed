package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_FetchAll(t *testing.T) {
	b := NewBuiltin(0)

	first, err := b.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 5)
	for _, ds := range first {
		assert.NoError(t, ds.Validate())
	}

	first[0].Name = "changed"
	second, err := b.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Customer Survey Results", second[0].Name)
}

func TestBuiltin_LatencyHonoursContext(t *testing.T) {
	b := NewBuiltin(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.FetchAll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
