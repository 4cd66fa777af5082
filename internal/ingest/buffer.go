package ingest

import "github.com/vmelnik/bazaar-data/internal/model"

// bufferKey addresses one rolling buffer.
type bufferKey struct {
	itemID   int64
	currency model.Currency
	level    int
}

// seedKey tracks which (item, currency) pairs already had their buffers
// seeded from persisted history this run.
type seedKey struct {
	itemID   int64
	currency model.Currency
}

// ring is a fixed-capacity FIFO of recent prices. When full, pushing evicts
// the oldest value.
type ring struct {
	buf   []int64
	head  int // index of the oldest value
	count int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]int64, capacity)}
}

func (r *ring) push(v int64) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) len() int { return r.count }

// values returns the buffered prices, oldest to newest.
func (r *ring) values() []int64 {
	out := make([]int64, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// bufferSet owns one run's rolling buffers. Each run constructs its own
// set; nothing is shared across runs.
type bufferSet struct {
	capacity int
	rings    map[bufferKey]*ring
	seeded   map[seedKey]struct{}
}

func newBufferSet(capacity int) *bufferSet {
	return &bufferSet{
		capacity: capacity,
		rings:    make(map[bufferKey]*ring),
		seeded:   make(map[seedKey]struct{}),
	}
}

// isSeeded reports whether the (item, currency) pair had its history loaded.
func (s *bufferSet) isSeeded(itemID int64, currency model.Currency) bool {
	_, ok := s.seeded[seedKey{itemID, currency}]
	return ok
}

// seed fills fresh buffers from persisted history, oldest price first, and
// marks the key seeded. Seeding an already-seeded key is a no-op.
func (s *bufferSet) seed(itemID int64, currency model.Currency, histories map[int][]int64) {
	key := seedKey{itemID, currency}
	if _, ok := s.seeded[key]; ok {
		return
	}
	s.seeded[key] = struct{}{}

	for level, prices := range histories {
		r := newRing(s.capacity)
		for _, p := range prices {
			r.push(p)
		}
		s.rings[bufferKey{itemID, currency, level}] = r
	}
}

// push appends a price to one level's buffer, creating it if needed.
func (s *bufferSet) push(itemID int64, currency model.Currency, level int, price int64) {
	key := bufferKey{itemID, currency, level}
	r, ok := s.rings[key]
	if !ok {
		r = newRing(s.capacity)
		s.rings[key] = r
	}
	r.push(price)
}

// windows snapshots the per-level sample windows for a classification call.
// Levels without a buffer get no entry.
func (s *bufferSet) windows(itemID int64, currency model.Currency, levels []int) map[int][]int64 {
	out := make(map[int][]int64, len(levels))
	for _, level := range levels {
		if r, ok := s.rings[bufferKey{itemID, currency, level}]; ok && r.len() > 0 {
			out[level] = r.values()
		}
	}
	return out
}
