package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/audit"
	"github.com/Ads97/Veritas/internal/model"
)

func TestPrintRecent(t *testing.T) {
	ctx := context.Background()
	store, err := audit.Open(ctx, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := audit.Run{
		ID:         audit.NewRunID(),
		StartedAt:  base,
		FinishedAt: base.Add(time.Second),
		Subject:    model.Subject{Name: "Jane Doe", Address: "123 Main St"},
		Verdict:    &model.Verdict{ScamLikelihood: 0.25},
	}
	failed := audit.Run{
		ID:         audit.NewRunID(),
		StartedAt:  base.Add(time.Minute),
		FinishedAt: base.Add(time.Minute),
		Subject:    model.Subject{Name: "Robert Chen", Address: "1 Nowhere"},
		Err:        "verification run failed",
	}
	require.NoError(t, store.Record(ctx, ok))
	require.NoError(t, store.Record(ctx, failed))

	var out bytes.Buffer
	require.NoError(t, printRecent(ctx, &out, store, 10))

	text := out.String()
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "0.25")
	assert.Contains(t, text, "failed: verification run failed")
	assert.Less(t, bytes.Index(out.Bytes(), []byte(failed.ID)), bytes.Index(out.Bytes(), []byte(ok.ID)), "newest run first")
}

func TestPrintRecent_Empty(t *testing.T) {
	ctx := context.Background()
	store, err := audit.Open(ctx, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var out bytes.Buffer
	require.NoError(t, printRecent(ctx, &out, store, 0))
	assert.Equal(t, "No recorded runs.\n", out.String())
}
