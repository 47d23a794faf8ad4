// Package token provides rough token-count estimation for batch budgeting.
// Estimates intentionally overshoot rather than undershoot: tokens are
// approximated as ceil(utf8_bytes / 4) plus a fixed per-unit envelope cost for
// the JSON wrapping each unit carries inside a request.
package token

// BytesPerToken is the byte-to-token estimation divisor.
const BytesPerToken = 4

// UnitOverhead estimates the tokens consumed by one unit's JSON envelope
// ({"id":N,"text":"..."} plus separators) in a batch request.
const UnitOverhead = 8

// Estimate approximates the token count of a text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + BytesPerToken - 1) / BytesPerToken
}

// EstimateUnit approximates the token cost of a unit inside a batch request,
// including its JSON envelope.
func EstimateUnit(text string) int {
	return Estimate(text) + UnitOverhead
}
