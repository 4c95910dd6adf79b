package policy

import (
	"testing"
	"time"
)

func testClock(start time.Time) (func() time.Time, *time.Time) {
	current := start
	return func() time.Time { return current }, &current
}

func newTestGuard(t *testing.T) (*Guard, *time.Time) {
	t.Helper()
	now, current := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewGuard(DefaultConfig(), now, nil), current
}

func TestClassifyRequiresBothKeywordSets(t *testing.T) {
	g, _ := newTestGuard(t)

	cases := []struct {
		text string
		want bool
	}{
		{"hamza is stupid", true},
		{"the developer is a fraud", true},
		{"HAMZA KHAN IS THE WORST", true},
		{"hamza is great", false},
		{"this answer is stupid", false},
		{"tell me about the weather", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := g.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestClassifySubstringFalsePositive(t *testing.T) {
	// Substring containment is the faithful default: "badge" contains "bad".
	g, _ := newTestGuard(t)
	if !g.Classify("the creator wears a badge") {
		t.Fatal("substring mode should match 'bad' inside 'badge'")
	}
}

func TestClassifyWordBoundaryMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WordBoundary = true
	g := NewGuard(cfg, nil, nil)

	if g.Classify("the creator wears a badge") {
		t.Fatal("word-boundary mode must not match 'bad' inside 'badge'")
	}
	if !g.Classify("the creator is bad") {
		t.Fatal("word-boundary mode should match the standalone token 'bad'")
	}
}

func TestNonAbusiveTextNeverMutatesState(t *testing.T) {
	g, _ := newTestGuard(t)

	for i := 0; i < 10; i++ {
		if v := g.Check("hello, how are you?"); v != VerdictClean {
			t.Fatalf("expected clean verdict, got %v", v)
		}
	}
	if g.WarningNumber() != 0 {
		t.Fatalf("abuse counter moved on clean input: %d", g.WarningNumber())
	}
	if g.Locked() {
		t.Fatal("guard locked on clean input")
	}
}

func TestFirstStrikeIsFree(t *testing.T) {
	g, _ := newTestGuard(t)

	if v := g.Check("hamza is stupid"); v != VerdictIgnored {
		t.Fatalf("expected ignored verdict for first strike, got %v", v)
	}
	if g.WarningVisible() {
		t.Fatal("warning must not show on the free strike")
	}
	if g.Locked() {
		t.Fatal("guard must not lock on the free strike")
	}
}

func TestWarningsOnStrikesTwoThroughFour(t *testing.T) {
	g, _ := newTestGuard(t)
	g.Check("hamza is stupid") // free strike

	for want := 1; want <= 3; want++ {
		if v := g.Check("hamza is stupid"); v != VerdictWarned {
			t.Fatalf("strike %d: expected warned verdict, got %v", want+1, v)
		}
		if !g.WarningVisible() {
			t.Fatalf("strike %d: warning overlay not visible", want+1)
		}
		if got := g.WarningNumber(); got != want {
			t.Fatalf("strike %d: warning number = %d, want %d", want+1, got, want)
		}
	}
}

func TestFifthStrikeEngagesFourHourLock(t *testing.T) {
	g, current := newTestGuard(t)
	for i := 0; i < 4; i++ {
		g.Check("hamza is stupid")
	}

	if v := g.Check("hamza is stupid"); v != VerdictLocked {
		t.Fatalf("expected locked verdict on fifth strike, got %v", v)
	}
	if g.WarningVisible() {
		t.Fatal("warning overlay must hide once the lock engages")
	}
	if !g.Locked() {
		t.Fatal("guard should report locked")
	}
	if got := g.Remaining(); got != 4*time.Hour {
		t.Fatalf("remaining = %v, want 4h", got)
	}

	// The lock clears by itself once the deadline passes.
	*current = current.Add(4*time.Hour + time.Second)
	if g.Locked() {
		t.Fatal("lock should expire after its deadline")
	}
	if g.Remaining() != 0 {
		t.Fatalf("remaining after expiry = %v, want 0", g.Remaining())
	}
}

func TestStaleCounterRelocksImmediatelyAfterExpiry(t *testing.T) {
	// The counter is never reset, so one offense after serving the lock
	// re-locks on the spot.
	g, current := newTestGuard(t)
	for i := 0; i < 5; i++ {
		g.Check("hamza is stupid")
	}
	*current = current.Add(5 * time.Hour)
	if g.Locked() {
		t.Fatal("lock should have expired")
	}

	if v := g.Check("hamza is stupid"); v != VerdictLocked {
		t.Fatalf("expected immediate re-lock, got %v", v)
	}
	if !g.Locked() {
		t.Fatal("guard should be locked again")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	now, _ := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	g := NewGuard(DefaultConfig(), now, nil)
	g.Restore(3, now().Add(time.Hour))

	if !g.Locked() {
		t.Fatal("restored future deadline should lock the guard")
	}
	if got := g.WarningNumber(); got != 2 {
		t.Fatalf("restored warning number = %d, want 2", got)
	}
}

func TestOnChangeCallbackFires(t *testing.T) {
	now, _ := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	var gotCount int
	var gotUntil time.Time
	g := NewGuard(DefaultConfig(), now, func(count int, lockUntil time.Time) {
		gotCount = count
		gotUntil = lockUntil
	})

	g.Check("hamza is stupid")
	if gotCount != 1 {
		t.Fatalf("callback count = %d, want 1", gotCount)
	}
	if !gotUntil.IsZero() {
		t.Fatalf("callback lockUntil = %v, want zero", gotUntil)
	}
}

func TestDismissWarning(t *testing.T) {
	g, _ := newTestGuard(t)
	g.Check("hamza is stupid")
	g.Check("hamza is stupid")
	if !g.WarningVisible() {
		t.Fatal("warning should be visible after second strike")
	}

	g.DismissWarning()
	if g.WarningVisible() {
		t.Fatal("warning should hide after dismissal")
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{7509000 * time.Millisecond, "2h 5m 9s"},
		{0, "0h 0m 0s"},
		{-time.Minute, "0h 0m 0s"},
		{time.Second, "0h 0m 1s"},
		{25*time.Hour + 59*time.Second, "25h 0m 59s"},
	}

	for _, tc := range cases {
		if got := FormatRemaining(tc.d); got != tc.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
