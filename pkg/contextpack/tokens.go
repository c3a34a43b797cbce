package contextpack

import (
	"encoding/json"

	"github.com/pkoukk/tiktoken-go"
)

// CountTokens estimates the token footprint of text under the o200k_base
// encoding, falling back to a chars/4 heuristic when the encoding is
// unavailable (offline without a cached vocabulary).
func CountTokens(text string) int {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// TokenCount reports the pack's serialized token footprint, used to verify
// the caps keep prompts bounded.
func (p Pack) TokenCount() int {
	data, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return CountTokens(string(data))
}
