package norm

import (
	"regexp"
	"strings"
)

// futuresSuffix matches a futures month code followed by a one or two digit
// year, e.g. "M4" in "ESM4" or "Z25" in "GCZ25".
var futuresSuffix = regexp.MustCompile(`^(.+?)([FGHJKMNQUVXZ])([0-9]{1,2})$`)

// RootSymbol strips futures month/year codes from a symbol and returns the
// underlying instrument root: "ESM4" -> "ES", "GCZ25" -> "GC". Symbols that
// do not look like dated futures contracts are returned unchanged (upper
// cased and trimmed).
func RootSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return ""
	}

	m := futuresSuffix.FindStringSubmatch(s)
	if m == nil {
		return s
	}

	root := m[1]
	// A one-letter remainder ("F" from "FG4") is more likely a short equity
	// ticker than a futures root with its whole name consumed.
	if len(root) < 2 {
		return s
	}
	return root
}

// SameRoot reports whether two symbols share an instrument root.
func SameRoot(a, b string) bool {
	return RootSymbol(a) == RootSymbol(b)
}

// ParseTopic splits a wire topic of the form "base-SYMBOL" at the last dash:
// "market.ticker-ESM4" -> ("market.ticker", "ESM4"). Returns ok=false when
// either part is empty.
func ParseTopic(topic string) (base, symbol string, ok bool) {
	i := strings.LastIndex(topic, "-")
	if i <= 0 || i == len(topic)-1 {
		return "", "", false
	}
	return topic[:i], topic[i+1:], true
}

// Topic builds the wire topic name for a base channel and symbol.
func Topic(base, symbol string) string {
	return base + "-" + symbol
}

// PayloadSymbol extracts the instrument symbol from a decoded payload map,
// trying the usual aliases. Returns "" when absent.
func PayloadSymbol(payload map[string]any) string {
	return stringField(payload, "symbol", "s", "ticker", "instrument")
}
