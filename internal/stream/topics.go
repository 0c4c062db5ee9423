package stream

import (
	"time"

	"github.com/tradevue/marketfeed/internal/norm"
)

// deriveTopics returns the wire topics for a symbol in subscribe order.
// Depth-of-market channels are only requested for DOM-capable instruments;
// subscribing them for cash equities draws a rejection from most feeds.
func deriveTopics(symbol string, domCapable bool) []string {
	topics := make([]string, 0, 4)
	if domCapable {
		topics = append(topics,
			norm.Topic(TopicDOM, symbol),
			norm.Topic(TopicDepth, symbol),
		)
	}
	topics = append(topics,
		norm.Topic(TopicTicker, symbol),
		norm.Topic(TopicBar, symbol),
	)
	return topics
}

// topicSetsEqual compares two topic sets ignoring order.
func topicSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, t := range a {
		seen[t]++
	}
	for _, t := range b {
		seen[t]--
		if seen[t] < 0 {
			return false
		}
	}
	return true
}

// ReconnectDelay returns the backoff for the nth consecutive recycle,
// n starting at 1: base, 2x, 4x... capped at max.
func ReconnectDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}
