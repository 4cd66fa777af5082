package ingest

import (
	"sort"

	"github.com/vmelnik/bazaar-data/internal/feed"
	"github.com/vmelnik/bazaar-data/internal/model"
)

// ackFrontier computes how far read-acknowledgement may safely advance.
// Flushes follow classification order, not message-id order, so a flushed
// batch can contain ids above observations still waiting in later batches.
// The safe frontier is the highest fetched id at or below which every
// message has been persisted or was deliberately skipped; acknowledging
// past it would mark unpersisted messages as read, and an aborted run
// would then never see them again.
type ackFrontier struct {
	fetched   []int64 // ascending ids of every fetched message
	required  []int64 // ascending ids that must persist before acking past them
	persisted map[int64]struct{}
	next      int   // index into required of the first unpersisted id
	acked     int64 // highest id acknowledged so far
}

func newAckFrontier(msgs []feed.Message, observations []model.PriceObservation) *ackFrontier {
	f := &ackFrontier{
		fetched:   make([]int64, len(msgs)),
		required:  make([]int64, len(observations)),
		persisted: make(map[int64]struct{}, len(observations)),
	}
	for i, m := range msgs {
		f.fetched[i] = m.ID
	}
	for i, o := range observations {
		f.required[i] = o.MessageID
	}
	sort.Slice(f.fetched, func(i, j int) bool { return f.fetched[i] < f.fetched[j] })
	sort.Slice(f.required, func(i, j int) bool { return f.required[i] < f.required[j] })
	return f
}

func (f *ackFrontier) markPersisted(id int64) {
	f.persisted[id] = struct{}{}
	for f.next < len(f.required) {
		if _, ok := f.persisted[f.required[f.next]]; !ok {
			break
		}
		f.next++
	}
}

// advance reports the new safe frontier when it has moved beyond the last
// acknowledged id. Once every required id is persisted the frontier reaches
// the newest fetched message, covering skipped messages too.
func (f *ackFrontier) advance() (int64, bool) {
	var safe int64
	if f.next == len(f.required) {
		if len(f.fetched) == 0 {
			return 0, false
		}
		safe = f.fetched[len(f.fetched)-1]
	} else {
		// Largest fetched id strictly below the first unpersisted one.
		i := sort.Search(len(f.fetched), func(i int) bool {
			return f.fetched[i] >= f.required[f.next]
		})
		if i == 0 {
			return 0, false
		}
		safe = f.fetched[i-1]
	}

	if safe <= f.acked {
		return 0, false
	}
	f.acked = safe
	return safe, true
}
