package norm

import (
	"sort"
	"time"

	"github.com/tradevue/marketfeed/internal/model"
)

// MaxDepthLevels caps each side of a canonical depth snapshot.
const MaxDepthLevels = 5

// Depth maps a raw depth/DOM payload to a canonical DepthSnapshot.
//
// Accepted shapes per side: []{price,size} objects or [price,size] pairs
// under "bids"/"asks" (and common aliases). A missing best level is
// synthesized from best_bid_price/best_bid_size style fields. Sides are
// sorted (bids descending, asks ascending) and capped at MaxDepthLevels.
// Mid price and spread are taken from the payload when present, otherwise
// derived from the best levels. Prices pass tick-size correction.
//
// Returns ErrSymbolMismatch when the payload symbol root disagrees with
// want, and ErrEmptyPayload when no levels can be extracted at all.
func Depth(payload map[string]any, want string, tickSize float64) (model.DepthSnapshot, error) {
	symbol := stringField(payload, "symbol", "s", "ticker", "instrument")
	if symbol != "" && !SameRoot(symbol, want) {
		return model.DepthSnapshot{}, ErrSymbolMismatch
	}

	bids := parseLevels(payload, "bids", "bid", "b", "buy")
	asks := parseLevels(payload, "asks", "ask", "a", "sell")

	bids = synthesizeBest(bids, payload, "best_bid_price", "bestBidPrice", "best_bid_size", "bestBidSize")
	asks = synthesizeBest(asks, payload, "best_ask_price", "bestAskPrice", "best_ask_size", "bestAskSize")

	if len(bids) == 0 && len(asks) == 0 {
		return model.DepthSnapshot{}, ErrEmptyPayload
	}

	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	if len(bids) > MaxDepthLevels {
		bids = bids[:MaxDepthLevels]
	}
	if len(asks) > MaxDepthLevels {
		asks = asks[:MaxDepthLevels]
	}

	var bestBid, bestAsk float64
	if len(bids) > 0 {
		bestBid = bids[0].Price
	}
	if len(asks) > 0 {
		bestAsk = asks[0].Price
	}

	mid, ok := floatField(payload, "mid_price", "midPrice", "mid")
	if !ok && bestBid > 0 && bestAsk > 0 {
		mid = (bestBid + bestAsk) / 2
	}
	spread, ok := floatField(payload, "spread")
	if !ok && bestBid > 0 && bestAsk > 0 {
		spread = bestAsk - bestBid
	}

	for i := range bids {
		bids[i].Price = CorrectPrice(bids[i].Price, tickSize, mid)
	}
	for i := range asks {
		asks[i].Price = CorrectPrice(asks[i].Price, tickSize, mid)
	}

	var totalBid, totalAsk float64
	for _, l := range bids {
		totalBid += l.Size
	}
	for _, l := range asks {
		totalAsk += l.Size
	}

	updatedAt, ok := timeField(payload, "updatedAt", "updated_at", "timestamp", "ts", "time")
	if !ok {
		updatedAt = time.Now().UTC()
	}

	// Mid is derived, legitimately half-tick, so it is not snapped.
	return model.DepthSnapshot{
		Symbol:       symbol,
		Bids:         bids,
		Asks:         asks,
		MidPrice:     mid,
		Spread:       spread,
		TotalBidSize: totalBid,
		TotalAskSize: totalAsk,
		UpdatedAt:    updatedAt,
	}, nil
}

// parseLevels extracts a side's levels from the first matching alias.
func parseLevels(payload map[string]any, keys ...string) []model.PriceLevel {
	v, ok := field(payload, keys...)
	if !ok {
		return nil
	}

	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	levels := make([]model.PriceLevel, 0, len(raw))
	for _, entry := range raw {
		switch e := entry.(type) {
		case map[string]any:
			price, okP := floatField(e, "price", "p")
			size, okS := floatField(e, "size", "qty", "quantity", "volume", "v")
			if okP {
				if !okS {
					size = 0
				}
				levels = append(levels, model.PriceLevel{Price: price, Size: size})
			}
		case []any:
			if len(e) >= 2 {
				price, okP := Float(e[0])
				size, okS := Float(e[1])
				if okP && okS {
					levels = append(levels, model.PriceLevel{Price: price, Size: size})
				}
			}
		}
	}
	return levels
}

// synthesizeBest prepends a best level built from flat best-price/size
// fields when the levels array is missing it.
func synthesizeBest(levels []model.PriceLevel, payload map[string]any, priceKey, priceAlias, sizeKey, sizeAlias string) []model.PriceLevel {
	price, ok := floatField(payload, priceKey, priceAlias)
	if !ok || price == 0 {
		return levels
	}
	size, _ := floatField(payload, sizeKey, sizeAlias)

	if len(levels) > 0 && levels[0].Price == price {
		return levels
	}
	return append([]model.PriceLevel{{Price: price, Size: size}}, levels...)
}
