package classify

import (
	"testing"

	"github.com/vmelnik/bazaar-data/internal/model"
)

// ringItem has two levels with tolerance 0.1: windows of [100]*5 and [200]*5
// produce bands [90,110] and [180,220].
func ringItem() model.Item {
	return model.Item{
		ID:        1,
		Name:      "Ring",
		Category:  "jewelry",
		Levels:    []int{3, 5},
		Tolerance: 0.1,
	}
}

func ringWindows() map[int][]int64 {
	return map[int][]int64{
		3: {100, 100, 100, 100, 100},
		5: {200, 200, 200, 200, 200},
	}
}

func obs(price int64) model.PriceObservation {
	return model.PriceObservation{Price: price, Currency: model.CurrencyAdena, Source: model.SourceAuctionHouse}
}

func TestClassifySingleOrNoLevelPolicy(t *testing.T) {
	c := New()

	for _, levels := range [][]int{nil, {}, {4}} {
		item := ringItem()
		item.Levels = levels
		got := c.Classify(obs(100), item, map[int][]int64{4: {100, 100}})
		if got != (Result{}) {
			t.Errorf("Classify with levels %v = %+v, want unclassifiable", levels, got)
		}
	}
}

func TestClassifyEmptyWindows(t *testing.T) {
	c := New()

	got := c.Classify(obs(100), ringItem(), map[int][]int64{})
	if got != (Result{}) {
		t.Errorf("Classify with no windows = %+v, want unclassifiable", got)
	}

	got = c.Classify(obs(100), ringItem(), map[int][]int64{3: {}, 5: nil})
	if got != (Result{}) {
		t.Errorf("Classify with all-empty windows = %+v, want unclassifiable", got)
	}
}

func TestClassifyBands(t *testing.T) {
	c := New()

	tests := []struct {
		name  string
		price int64
		want  Result
	}{
		{"single match", 105, Result{Label: "3", Level: 3, Exact: true}},
		{"low endpoint inclusive", 90, Result{Label: "3", Level: 3, Exact: true}},
		{"high endpoint inclusive", 110, Result{Label: "3", Level: 3, Exact: true}},
		{"gap between bands", 150, Result{Label: "3-5"}},
		{"just above lower band", 111, Result{Label: "3-5"}},
		{"below all bands", 80, Result{Label: "<3"}},
		{"above all bands", 230, Result{Label: ">5"}},
		{"upper band match", 200, Result{Label: "5", Level: 5, Exact: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(obs(tt.price), ringItem(), ringWindows())
			if got != tt.want {
				t.Errorf("Classify(price=%d) = %+v, want %+v", tt.price, got, tt.want)
			}
		})
	}
}

func TestClassifyOverlappingBands(t *testing.T) {
	c := New()

	// Windows of [100] and [110] with tolerance 0.1 give bands [90,110]
	// and [99,121]; price 105 sits in both.
	windows := map[int][]int64{
		3: {100},
		5: {110},
	}

	got := c.Classify(obs(105), ringItem(), windows)
	want := Result{Label: "3-5"}
	if got != want {
		t.Errorf("Classify(105) = %+v, want %+v", got, want)
	}
}

func TestClassifyPartialWindows(t *testing.T) {
	c := New()

	// Only level 5 has history; level 3 contributes no band.
	windows := map[int][]int64{
		5: {200, 200, 200},
	}

	got := c.Classify(obs(200), ringItem(), windows)
	want := Result{Label: "5", Level: 5, Exact: true}
	if got != want {
		t.Errorf("Classify(200) = %+v, want %+v", got, want)
	}

	// Below the only band the boundary sentinel names it.
	got = c.Classify(obs(100), ringItem(), windows)
	want = Result{Label: "<5"}
	if got != want {
		t.Errorf("Classify(100) = %+v, want %+v", got, want)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New()
	first := c.Classify(obs(150), ringItem(), ringWindows())
	for i := 0; i < 10; i++ {
		if got := c.Classify(obs(150), ringItem(), ringWindows()); got != first {
			t.Fatalf("Classify not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestArmorSetRule(t *testing.T) {
	c := New(ArmorSetRule("armor"))

	armor := ringItem()
	armor.Category = "armor"

	private := model.PriceObservation{Price: 1000, Source: model.SourcePrivateStore}

	// Out-of-band private trade of armor gets the Set label.
	got := c.Classify(private, armor, ringWindows())
	if got.Label != SetLabel {
		t.Errorf("Classify = %+v, want Set label", got)
	}

	// In-band prices are untouched by the override.
	inBand := private
	inBand.Price = 105
	got = c.Classify(inBand, armor, ringWindows())
	if got.Label != "3" {
		t.Errorf("Classify in-band = %+v, want level 3", got)
	}

	// The gap label also wins over the override.
	inGap := private
	inGap.Price = 150
	got = c.Classify(inGap, armor, ringWindows())
	if got.Label != "3-5" {
		t.Errorf("Classify in-gap = %+v, want 3-5", got)
	}

	// Non-armor categories fall through to the boundary policy.
	got = c.Classify(private, ringItem(), ringWindows())
	if got.Label != ">5" {
		t.Errorf("Classify non-armor = %+v, want >5", got)
	}

	// Auction-house sales of armor fall through too.
	auction := private
	auction.Source = model.SourceAuctionHouse
	got = c.Classify(auction, armor, ringWindows())
	if got.Label != ">5" {
		t.Errorf("Classify auction armor = %+v, want >5", got)
	}
}

func TestBands(t *testing.T) {
	item := ringItem()
	bands := Bands(item, ringWindows())

	if len(bands) != 2 {
		t.Fatalf("Bands returned %d bands, want 2", len(bands))
	}
	if bands[0].Level != 3 || bands[1].Level != 5 {
		t.Errorf("bands not sorted by level: %+v", bands)
	}
	if bands[0].Low != 90 || bands[0].High != 110 {
		t.Errorf("level 3 band = [%v,%v], want [90,110]", bands[0].Low, bands[0].High)
	}
	if bands[1].Low != 180 || bands[1].High != 220 {
		t.Errorf("level 5 band = [%v,%v], want [180,220]", bands[1].Low, bands[1].High)
	}

	// Windows for levels the item does not declare are ignored.
	windows := ringWindows()
	windows[7] = []int64{500}
	if got := Bands(item, windows); len(got) != 2 {
		t.Errorf("Bands with undeclared level = %d bands, want 2", len(got))
	}
}
