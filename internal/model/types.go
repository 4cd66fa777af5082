package model

import "time"

// Currency identifies the unit a price was quoted in.
type Currency string

const (
	CurrencyAdena   Currency = "adena"   // primary in-game currency
	CurrencyCoin    Currency = "coin"    // secondary currency, traded against adena
	CurrencyUnknown Currency = "unknown" // message carried no recognizable venue marker
)

// Source identifies the trade venue a report came from.
type Source string

const (
	SourceAuctionHouse Source = "auction_house"
	SourcePrivateStore Source = "private_store"
	SourceWorldTrade   Source = "world_trade"
	SourceUnknown      Source = "unknown"
)

// Item is a catalogued tradeable good. Owned by the catalog collaborator;
// read-only to the ingestion core.
type Item struct {
	ID       int64
	Name     string
	Category string

	// Levels holds the item's valid modification levels, sorted ascending.
	// May be empty (unmodifiable item) or a singleton.
	Levels []int

	// Tolerance is the band-width fraction used when classifying prices for
	// this item. A band spans center*(1-Tolerance) to center*(1+Tolerance).
	Tolerance float64
}

// PriceObservation is one parsed price report, ready for classification and
// persistence.
type PriceObservation struct {
	MessageID int64 // feed message this observation came from
	ItemID    int64
	ItemName  string
	Price     int64 // minor currency unit, always positive
	Currency  Currency
	Source    Source
	Timestamp time.Time

	// Level is the classification result: a definite level ("3"), an
	// ambiguous or gap range ("3-5"), a boundary sentinel ("<3", ">5"), an
	// override label ("Set"), or empty when unclassifiable. Assigned at most
	// once per run, before persistence.
	Level string
}
