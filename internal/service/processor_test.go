package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/insights/internal/config"
	"github.com/timmy/insights/internal/domain"
)

type memFiles map[string]string

func (m memFiles) Download(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

func TestQualityProcessor_RandomScore(t *testing.T) {
	p := NewQualityProcessor(config.ProcessingConfig{MinScore: 70, MaxScore: 100}, nil, 1)
	for i := 0; i < 50; i++ {
		out, err := p.Process(context.Background(), domain.Dataset{ID: "x"})
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, out.Status)
		assert.GreaterOrEqual(t, out.Score, 70)
		assert.LessOrEqual(t, out.Score, 100)
	}
}

func TestQualityProcessor_AlwaysFails(t *testing.T) {
	p := NewQualityProcessor(config.ProcessingConfig{MinScore: 0, MaxScore: 100, FailureRate: 1}, nil, 1)
	out, err := p.Process(context.Background(), domain.Dataset{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.NotEmpty(t, out.Reason)
}

func TestQualityProcessor_ProfilesCSV(t *testing.T) {
	files := memFiles{"datasets/1/sales.CSV": "a,b\n1,\n2,3\n"}
	p := NewQualityProcessor(config.ProcessingConfig{MinScore: 0, MaxScore: 0}, files, 1)

	out, err := p.Process(context.Background(), domain.Dataset{ID: "1", StorageKey: "datasets/1/sales.CSV"})
	require.NoError(t, err)
	assert.Equal(t, domain.Completed(75), out)
}

func TestQualityProcessor_MissingObject(t *testing.T) {
	p := NewQualityProcessor(config.ProcessingConfig{}, memFiles{}, 1)
	_, err := p.Process(context.Background(), domain.Dataset{ID: "1", StorageKey: "datasets/1/gone.csv"})
	assert.Error(t, err)
}

func TestQualityProcessor_CancelDuringDelay(t *testing.T) {
	p := NewQualityProcessor(config.ProcessingConfig{Delay: time.Hour}, nil, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.Process(ctx, domain.Dataset{ID: "x"})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return after cancel")
	}
}
