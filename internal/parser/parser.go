// Package parser extracts structured price observations from raw feed
// message text. The feed bot emits free-form templated strings; the only
// stable anchors are three venue marker phrases, a quoted item name after
// the item label, and a space-grouped digit run after the price label.
package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/vmelnik/bazaar-data/internal/model"
)

var (
	// ErrNoItemName means the message carried no quoted item name.
	ErrNoItemName = errors.New("parser: no item name in message")

	// ErrNoPrice means the message carried no parsable price.
	ErrNoPrice = errors.New("parser: no price in message")
)

// Venue marker phrases as emitted by the feed bot. Checked in priority
// order; a message contains at most one of them.
const (
	markerWorldTrade   = "Всемирной Торговли"
	markerCommission   = "Комиссионную Торговлю"
	markerPrivateStore = "личной торговой лавке"
)

var (
	itemNameRe = regexp.MustCompile(`Предмет\s+"(.+?)"`)
	priceRe    = regexp.MustCompile(`Цена:\s*(\d[\d\s]*)`)
)

// Draft is a parsed observation before item resolution.
type Draft struct {
	ItemName string
	Price    int64
	Currency model.Currency
	Source   model.Source
}

// Parse turns one raw message body into a Draft.
//
// A missing or unrecognized venue marker is not fatal: currency and source
// degrade to unknown and parsing continues. A missing item name or price is.
func Parse(text string) (Draft, error) {
	d := Draft{Currency: model.CurrencyUnknown, Source: model.SourceUnknown}

	switch {
	case strings.Contains(text, markerWorldTrade):
		d.Currency, d.Source = model.CurrencyCoin, model.SourceWorldTrade
	case strings.Contains(text, markerCommission):
		d.Currency, d.Source = model.CurrencyAdena, model.SourceAuctionHouse
	case strings.Contains(text, markerPrivateStore):
		d.Currency, d.Source = model.CurrencyAdena, model.SourcePrivateStore
	}

	m := itemNameRe.FindStringSubmatch(text)
	if m == nil {
		return Draft{}, ErrNoItemName
	}
	d.ItemName = strings.TrimSpace(m[1])

	pm := priceRe.FindStringSubmatch(text)
	if pm == nil {
		return Draft{}, ErrNoPrice
	}

	// Digit groups use spaces as thousands separators.
	digits := strings.ReplaceAll(strings.TrimSpace(pm[1]), " ", "")
	price, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || price <= 0 {
		return Draft{}, ErrNoPrice
	}
	d.Price = price

	return d, nil
}
