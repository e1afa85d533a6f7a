package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ads97/Veritas/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hit := model.SearchHit{Title: "Jane Doe - SF", Link: "https://example.com/jane"}
	claims := append(
		[]model.Claim{{Dimension: model.DimensionOwnershipProof, Polarity: model.PolaritySupports, Source: hit}},
		model.UnknownClaims(model.SearchHit{Link: "https://example.com/empty"}, "no content")...,
	)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		ID:         NewRunID(),
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Subject:    model.Subject{Name: "Jane Doe", Address: "123 Main St", Extra: map[string]string{"listed_rent": "1200"}},
		Claims:     claims,
		Reconciliation: model.Reconciliation{
			Matched:     true,
			MatchedName: "Jane A Doe",
			Attempted:   true,
			Parcel:      &model.Parcel{Block: "0268", Lot: "028"},
			Owners:      []string{"Jane A Doe"},
		},
		Market: &model.MarketEstimate{ListedRent: 1200, MarketRent: 3400},
		Verdict: &model.Verdict{
			ClearOutcome:   true,
			ScamLikelihood: 0.25,
			Address:        "123 Main St",
			Reasons:        []model.Reason{{Tag: model.TagGood, Text: "County records list Jane A Doe as an owner"}},
		},
	}

	require.NoError(t, store.Record(ctx, run))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, got.StartedAt.Equal(run.StartedAt))
	assert.Equal(t, run.Subject, got.Subject)
	assert.Equal(t, run.Reconciliation, got.Reconciliation)
	assert.Equal(t, run.Market, got.Market)
	require.NotNil(t, got.Verdict)
	assert.InDelta(t, 0.25, got.Verdict.ScamLikelihood, 1e-9)
	assert.Equal(t, "good", string(got.Verdict.Reasons[0].Tag))

	require.Len(t, got.Claims, 6)
	assert.Equal(t, model.PolaritySupports, got.Claims[0].Polarity)
	assert.Equal(t, hit, got.Claims[0].Source)
	for _, c := range got.Claims[1:] {
		assert.Equal(t, model.PolarityUnknown, c.Polarity)
		assert.Equal(t, "no content", c.Note)
	}
}

func TestRecord_FailedRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := Run{
		Subject:    model.Subject{Name: "Robert Chen", Address: "1 Nowhere"},
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Err:        "verification run failed",
	}
	require.NoError(t, store.Record(ctx, run))

	ids, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, err := store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Nil(t, got.Verdict)
	assert.Nil(t, got.Market)
	assert.Empty(t, got.Claims)
	assert.Equal(t, "verification run failed", got.Err)
}

func TestGet_Unknown(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecent_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		run := Run{ID: NewRunID(), StartedAt: base.Add(time.Duration(i) * time.Minute), FinishedAt: base}
		ids = append(ids, run.ID)
		require.NoError(t, store.Record(ctx, run))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1]}, got)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Run{}))
}
