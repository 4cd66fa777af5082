package ingest

import (
	"reflect"
	"testing"

	"github.com/vmelnik/bazaar-data/internal/model"
)

func TestRingEviction(t *testing.T) {
	r := newRing(3)

	for _, v := range []int64{1, 2, 3} {
		r.push(v)
	}
	if got := r.values(); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("values() = %v, want [1 2 3]", got)
	}

	// Overflow evicts the oldest.
	r.push(4)
	if got := r.values(); !reflect.DeepEqual(got, []int64{2, 3, 4}) {
		t.Errorf("values() after overflow = %v, want [2 3 4]", got)
	}
	if r.len() != 3 {
		t.Errorf("len() = %d, want capacity 3", r.len())
	}

	r.push(5)
	r.push(6)
	if got := r.values(); !reflect.DeepEqual(got, []int64{4, 5, 6}) {
		t.Errorf("values() = %v, want [4 5 6]", got)
	}
}

func TestRingNeverExceedsCapacity(t *testing.T) {
	r := newRing(5)
	for i := int64(0); i < 100; i++ {
		r.push(i)
		if r.len() > 5 {
			t.Fatalf("len() = %d exceeds capacity after %d pushes", r.len(), i+1)
		}
	}
	if got := r.values(); !reflect.DeepEqual(got, []int64{95, 96, 97, 98, 99}) {
		t.Errorf("values() = %v, want last five", got)
	}
}

func TestBufferSetSeedOnce(t *testing.T) {
	s := newBufferSet(10)

	s.seed(1, model.CurrencyAdena, map[int][]int64{3: {100, 110}})
	if !s.isSeeded(1, model.CurrencyAdena) {
		t.Fatal("key not marked seeded")
	}
	if s.isSeeded(1, model.CurrencyCoin) {
		t.Fatal("coin key unexpectedly seeded")
	}

	// Re-seeding must not clobber accumulated in-run prices.
	s.push(1, model.CurrencyAdena, 3, 120)
	s.seed(1, model.CurrencyAdena, map[int][]int64{3: {999}})

	windows := s.windows(1, model.CurrencyAdena, []int{3, 5})
	if !reflect.DeepEqual(windows[3], []int64{100, 110, 120}) {
		t.Errorf("window = %v, want [100 110 120]", windows[3])
	}
	if _, ok := windows[5]; ok {
		t.Error("level 5 has no buffer, want no window entry")
	}
}

func TestBufferSetSeedTruncatesToCapacity(t *testing.T) {
	s := newBufferSet(3)
	s.seed(7, model.CurrencyCoin, map[int][]int64{5: {1, 2, 3, 4, 5}})

	windows := s.windows(7, model.CurrencyCoin, []int{5})
	if !reflect.DeepEqual(windows[5], []int64{3, 4, 5}) {
		t.Errorf("window = %v, want most recent three", windows[5])
	}
}

func TestBufferSetKeysIndependent(t *testing.T) {
	s := newBufferSet(10)
	s.push(1, model.CurrencyAdena, 3, 100)
	s.push(1, model.CurrencyCoin, 3, 7)
	s.push(2, model.CurrencyAdena, 3, 500)

	if got := s.windows(1, model.CurrencyAdena, []int{3})[3]; !reflect.DeepEqual(got, []int64{100}) {
		t.Errorf("adena window = %v, want [100]", got)
	}
	if got := s.windows(1, model.CurrencyCoin, []int{3})[3]; !reflect.DeepEqual(got, []int64{7}) {
		t.Errorf("coin window = %v, want [7]", got)
	}
	if got := s.windows(2, model.CurrencyAdena, []int{3})[3]; !reflect.DeepEqual(got, []int64{500}) {
		t.Errorf("item 2 window = %v, want [500]", got)
	}
}
