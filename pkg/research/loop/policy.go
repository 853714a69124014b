package loop

import "strings"

// DefaultTurnCap bounds transcript growth for modes using the bounded policy.
const DefaultTurnCap = 10

// DefaultCompletionPhrases returns the stock phrases that signal the model
// considers its research finished.
func DefaultCompletionPhrases() []string {
	return []string{
		"research complete",
		"analysis finished",
		"investigation concluded",
		"no more information needed",
		"comprehensive overview provided",
	}
}

// Policy decides whether the loop may take another research turn. It is
// consulted after each assistant turn has been appended to the transcript;
// returning false forces compression regardless of pending tool calls.
type Policy interface {
	Continue(t Transcript) bool
}

// SelfStop lets the model research until it stops requesting tools. No
// artificial cap: termination is purely the absence of tool calls.
type SelfStop struct{}

func (SelfStop) Continue(Transcript) bool { return true }

// Bounded forces compression once the transcript reaches Cap turns or the
// latest assistant turn contains a completion phrase. It guards against
// runaway or confused models in the tool-heavy modes.
type Bounded struct {
	Cap     int
	Phrases []string
}

// NewBounded builds a bounded policy, falling back to the stock cap and
// phrase set for zero values so configuration can leave either unset.
func NewBounded(limit int, phrases []string) Bounded {
	if limit <= 0 {
		limit = DefaultTurnCap
	}
	if len(phrases) == 0 {
		phrases = DefaultCompletionPhrases()
	}
	return Bounded{Cap: limit, Phrases: phrases}
}

func (b Bounded) Continue(t Transcript) bool {
	if len(t) >= b.Cap {
		return false
	}
	return !HasCompletionPhrase(t.LastAssistantText(), b.Phrases)
}

// HasCompletionPhrase reports whether text contains any of the phrases,
// case-insensitive substring match.
func HasCompletionPhrase(text string, phrases []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
