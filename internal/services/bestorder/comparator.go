// Package bestorder decides which of two orders is the better one to
// cache, and reacts to order lifecycle events for one (entity, currency)
// pair. It performs no I/O except the mandated source-of-truth re-fetch
// when the cached best order dies.
package bestorder

import (
	"math"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
)

// Comparator picks the winner between the incumbent cached best order
// and a challenger. The incumbent wins exact ties unless the challenger
// sits on the preferred platform.
type Comparator interface {
	Pick(current, candidate *domain.ShortOrder) *domain.ShortOrder
}

// sellPrice is what a buyer pays; lower is better. USD-normalized price
// wins over the raw currency price when present so cross-currency
// comparisons stay meaningful.
func sellPrice(o *domain.ShortOrder) float64 {
	if o == nil {
		return math.Inf(1)
	}
	if o.TakePriceUSD != nil {
		return *o.TakePriceUSD
	}
	if o.TakePrice != nil {
		return *o.TakePrice
	}
	return math.Inf(1)
}

// bidPrice is what a seller receives; higher is better.
func bidPrice(o *domain.ShortOrder) float64 {
	if o == nil {
		return math.Inf(-1)
	}
	if o.MakePriceUSD != nil {
		return *o.MakePriceUSD
	}
	if o.MakePrice != nil {
		return *o.MakePrice
	}
	return math.Inf(-1)
}

type sellComparator struct {
	preferred domain.Platform
}

type bidComparator struct {
	preferred domain.Platform
}

func NewSellComparator(preferred domain.Platform) Comparator {
	return sellComparator{preferred: preferred}
}

func NewBidComparator(preferred domain.Platform) Comparator {
	return bidComparator{preferred: preferred}
}

func (c sellComparator) Pick(current, candidate *domain.ShortOrder) *domain.ShortOrder {
	return pick(current, candidate, sellPrice(candidate) < sellPrice(current), sellPrice(candidate) == sellPrice(current), c.preferred)
}

func (c bidComparator) Pick(current, candidate *domain.ShortOrder) *domain.ShortOrder {
	return pick(current, candidate, bidPrice(candidate) > bidPrice(current), bidPrice(candidate) == bidPrice(current), c.preferred)
}

func pick(current, candidate *domain.ShortOrder, candidateBetter, tied bool, preferred domain.Platform) *domain.ShortOrder {
	switch {
	case current == nil:
		return candidate
	case candidate == nil:
		return current
	case candidateBetter:
		return candidate
	case tied && candidate.Platform == preferred && current.Platform != preferred:
		return candidate
	default:
		return current
	}
}
