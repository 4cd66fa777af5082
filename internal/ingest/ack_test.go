package ingest

import (
	"testing"

	"github.com/vmelnik/bazaar-data/internal/feed"
	"github.com/vmelnik/bazaar-data/internal/model"
)

func frontierOf(fetched, required []int64) *ackFrontier {
	msgs := make([]feed.Message, len(fetched))
	for i, id := range fetched {
		msgs[i] = feed.Message{ID: id}
	}
	obs := make([]model.PriceObservation, len(required))
	for i, id := range required {
		obs[i] = model.PriceObservation{MessageID: id}
	}
	return newAckFrontier(msgs, obs)
}

func TestAckFrontierStopsAtUnpersisted(t *testing.T) {
	f := frontierOf([]int64{1, 2, 3, 4, 5}, []int64{2, 4})

	// Nothing persisted: message 2 blocks everything at or above it.
	if safe, ok := f.advance(); !ok || safe != 1 {
		t.Fatalf("advance() = %d, %v, want 1, true", safe, ok)
	}

	// Persisting out of order must not move the frontier past the gap.
	f.markPersisted(4)
	if safe, ok := f.advance(); ok {
		t.Fatalf("advance() after out-of-order persist = %d, true, want no move", safe)
	}

	// Filling the gap releases everything, skipped tail included.
	f.markPersisted(2)
	if safe, ok := f.advance(); !ok || safe != 5 {
		t.Fatalf("advance() = %d, %v, want 5, true", safe, ok)
	}

	// The frontier never reports the same position twice.
	if safe, ok := f.advance(); ok {
		t.Fatalf("repeat advance() = %d, true, want no move", safe)
	}
}

func TestAckFrontierBlockedAtStart(t *testing.T) {
	f := frontierOf([]int64{3, 4}, []int64{3})
	if safe, ok := f.advance(); ok {
		t.Fatalf("advance() = %d, true, want no move while the oldest id is unpersisted", safe)
	}
}

func TestAckFrontierAllSkipped(t *testing.T) {
	f := frontierOf([]int64{7, 8, 9}, nil)
	if safe, ok := f.advance(); !ok || safe != 9 {
		t.Fatalf("advance() = %d, %v, want 9, true", safe, ok)
	}
}

func TestAckFrontierEmptyRun(t *testing.T) {
	f := frontierOf(nil, nil)
	if safe, ok := f.advance(); ok {
		t.Fatalf("advance() = %d, true, want no move for an empty run", safe)
	}
}
