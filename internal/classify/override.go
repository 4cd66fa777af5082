package classify

import "github.com/vmelnik/bazaar-data/internal/model"

// SetLabel marks a distinct high-value tier not modeled by ordinary
// modification levels: a full armor set sold as one lot.
const SetLabel = "Set"

// ArmorSetRule claims the Set label for a private-trade observation of an
// armor-class item whose price fell outside every band. Complete sets change
// hands in direct trades at prices no single-piece band explains.
func ArmorSetRule(categories ...string) OverrideRule {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}

	return func(obs model.PriceObservation, item model.Item, _ []Band) (string, bool) {
		if obs.Source != model.SourcePrivateStore {
			return "", false
		}
		if _, ok := set[item.Category]; !ok {
			return "", false
		}
		return SetLabel, true
	}
}
