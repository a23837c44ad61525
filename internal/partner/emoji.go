package partner

import (
	"math/rand"
)

// DefaultEmoji is the canonical sync marker assigned to new settings rows and
// preferred by the suggester when it is not excluded.
const DefaultEmoji = "✅"

// emojiSuggestions is the fixed pool the suggester draws replacements from.
var emojiSuggestions = []string{
	"✅", "☑️", "✔️", "🔄", "💫", "⭐", "🏠", "💰", "🧾", "🔖",
}

// EmojiSuggester picks a replacement emoji when a candidate collides with a
// partner's. The tie-break among remaining candidates is random but seedable
// so tests are reproducible.
type EmojiSuggester struct {
	rng *rand.Rand
}

// NewEmojiSuggester returns a suggester whose tie-break is driven by seed.
func NewEmojiSuggester(seed int64) *EmojiSuggester {
	return &EmojiSuggester{rng: rand.New(rand.NewSource(seed))}
}

// Suggest returns an emoji from the suggestion pool, excluding the given
// values (the partner's emoji and the conflicting candidate). The canonical
// default wins when available; otherwise a random remaining candidate is
// picked. The excluded values are never returned.
func (s *EmojiSuggester) Suggest(exclude ...string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excluded[e] = true
	}

	if !excluded[DefaultEmoji] {
		return DefaultEmoji
	}

	var remaining []string
	for _, e := range emojiSuggestions {
		if !excluded[e] {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		// Unreachable with a two-person exclusion list, but an excluded value
		// must never come back, so report "no suggestion" instead.
		return ""
	}
	return remaining[s.rng.Intn(len(remaining))]
}
