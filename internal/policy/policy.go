// Package policy classifies abusive input and drives the warn/lock state
// machine that suspends the send capability after repeated violations.
package policy

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Config hoists every policy threshold so the transition table is data
// rather than scattered literals.
type Config struct {
	// SubjectTerms and NegativeTerms form the two keyword sets: text is
	// abusive iff it matches at least one term from each set.
	SubjectTerms  []string
	NegativeTerms []string

	// WordBoundary switches from substring containment (faithful to the
	// original behavior, false-positives on partial words) to whole-token
	// matching.
	WordBoundary bool

	// FreeStrikes is the number of initial violations discarded silently.
	FreeStrikes int
	// MaxWarnings caps the warning counter shown to the user.
	MaxWarnings int
	// LockThreshold is the violation count at which the lock engages.
	LockThreshold int
	// LockDuration is how long a lock lasts once imposed.
	LockDuration time.Duration
}

// DefaultConfig returns the production policy: one free strike, warnings on
// strikes two through four, a four-hour lock on the fifth.
func DefaultConfig() Config {
	return Config{
		SubjectTerms:  subjectTerms,
		NegativeTerms: negativeTerms,
		FreeStrikes:   1,
		MaxWarnings:   4,
		LockThreshold: 5,
		LockDuration:  4 * time.Hour,
	}
}

// Verdict is the guard's decision for one submitted text.
type Verdict int

const (
	// VerdictClean means the text is not abusive; forward it.
	VerdictClean Verdict = iota
	// VerdictIgnored means a free strike: discard silently, no warning.
	VerdictIgnored
	// VerdictWarned means discard and surface the warning overlay.
	VerdictWarned
	// VerdictLocked means the lock just engaged; discard and hide warnings.
	VerdictLocked
)

// Guard tracks the violation counter and lock deadline. Both survive
// restarts via the onChange callback; the counter is deliberately never
// reset when a lock expires, so a repeat offender re-locks on the next
// violation.
type Guard struct {
	mu             sync.Mutex
	cfg            Config
	count          int
	lockUntil      time.Time
	warningVisible bool

	now      func() time.Time
	onChange func(count int, lockUntil time.Time)
}

// NewGuard builds a guard with the given policy. now may be nil (wall
// clock); onChange, when non-nil, is invoked after every state change.
func NewGuard(cfg Config, now func() time.Time, onChange func(count int, lockUntil time.Time)) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{cfg: cfg, now: now, onChange: onChange}
}

// Restore rehydrates persisted state. Intended for startup only.
func (g *Guard) Restore(count int, lockUntil time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if count < 0 {
		count = 0
	}
	g.count = count
	g.lockUntil = lockUntil
}

// Classify reports whether text refers to the protected subject together
// with negative sentiment. Matching is case-insensitive.
func (g *Guard) Classify(text string) bool {
	lower := strings.ToLower(text)
	return matchesAny(lower, g.cfg.SubjectTerms, g.cfg.WordBoundary) &&
		matchesAny(lower, g.cfg.NegativeTerms, g.cfg.WordBoundary)
}

// Check classifies text and, for abusive input, advances the state machine.
// Non-abusive text never mutates state. Callers must reject sends while
// Locked before calling Check.
func (g *Guard) Check(text string) Verdict {
	if !g.Classify(text) {
		return VerdictClean
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.count++
	switch {
	case g.count <= g.cfg.FreeStrikes:
		g.notifyLocked()
		return VerdictIgnored
	case g.count >= g.cfg.LockThreshold:
		g.lockUntil = g.now().Add(g.cfg.LockDuration)
		g.warningVisible = false
		g.notifyLocked()
		return VerdictLocked
	default:
		g.warningVisible = true
		g.notifyLocked()
		return VerdictWarned
	}
}

// Locked reports whether the lock deadline lies in the future. It flips
// back to false on its own once the deadline passes.
func (g *Guard) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lockUntil.After(g.now())
}

// Remaining returns the time left on the lock, clamped at zero.
func (g *Guard) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := g.lockUntil.Sub(g.now())
	if d < 0 {
		return 0
	}
	return d
}

// WarningVisible reports whether the warning overlay should be shown.
func (g *Guard) WarningVisible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.warningVisible
}

// WarningNumber is the ordinal displayed in the overlay ("n / MaxWarnings"),
// one behind the raw counter because the first strike is free.
func (g *Guard) WarningNumber() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.count - g.cfg.FreeStrikes
	if n < 0 {
		n = 0
	}
	return n
}

// MaxWarnings exposes the configured warning ceiling for display.
func (g *Guard) MaxWarnings() int {
	return g.cfg.MaxWarnings
}

// DismissWarning hides the warning overlay.
func (g *Guard) DismissWarning() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.warningVisible = false
}

// notifyLocked invokes the persistence callback. Caller holds g.mu.
func (g *Guard) notifyLocked() {
	if g.onChange != nil {
		g.onChange(g.count, g.lockUntil)
	}
}

// FormatRemaining renders a countdown as "Xh Ym Zs", floored per unit and
// never negative.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

func matchesAny(lower string, terms []string, wholeWord bool) bool {
	for _, term := range terms {
		if term == "" {
			continue
		}
		if wholeWord {
			if containsToken(lower, term) {
				return true
			}
			continue
		}
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// containsToken matches term only when it is not embedded inside a larger
// word, so "bad" no longer fires on "badge".
func containsToken(text, term string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)
		if boundaryBefore(text, idx) && boundaryAfter(text, end) {
			return true
		}
		start = idx + 1
	}
}

func boundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	r := rune(text[idx-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r := rune(text[end])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
