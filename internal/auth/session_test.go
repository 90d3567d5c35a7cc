package auth

import (
	"context"
	"testing"
)

func TestSession_Lifecycle(t *testing.T) {
	clk := newFakeClock()
	fake := newFakeCognito()
	c := newTestClient(fake, clk)
	m := newTestManager(c, clk)

	sess := Begin(m, WithSessionLogger(discardLogger()))
	if !sess.IsActive() {
		t.Fatal("session not active after Begin()")
	}
	if sess.Manager() != m {
		t.Fatal("Manager() does not return the wrapped manager")
	}

	if _, err := m.GetValidToken(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}

	sess.Close()
	if sess.IsActive() {
		t.Error("session still active after Close()")
	}
	if c.CurrentToken() != nil {
		t.Error("token survived session close")
	}
}

func TestSession_CleanupRunsOnPanicPath(t *testing.T) {
	clk := newFakeClock()
	fake := newFakeCognito()
	c := newTestClient(fake, clk)
	m := newTestManager(c, clk)

	func() {
		defer func() { _ = recover() }()

		sess := Begin(m, WithSessionLogger(discardLogger()))
		defer sess.Close()

		if _, err := m.GetValidToken(context.Background()); err != nil {
			t.Fatalf("login: %v", err)
		}
		panic("work inside the scope failed")
	}()

	if c.CurrentToken() != nil {
		t.Error("token survived a panicking scope")
	}
}

func TestSession_CloseExactlyOnce(t *testing.T) {
	clk := newFakeClock()
	fake := newFakeCognito()
	c := newTestClient(fake, clk)
	m := newTestManager(c, clk)

	sess := Begin(m, WithSessionLogger(discardLogger()))
	sess.Close()

	// Plant a token directly; a second Close must not clear it, proving
	// cleanup ran only on the first call.
	c.mu.Lock()
	c.current = NewToken("hdr.payload.sig", "", 60, "Bearer", clk.Now())
	c.mu.Unlock()

	sess.Close()

	if c.CurrentToken() == nil {
		t.Error("second Close() ran cleanup again")
	}
}

func TestSession_DistinctIDs(t *testing.T) {
	clk := newFakeClock()
	m := newTestManager(newTestClient(newFakeCognito(), clk), clk)

	a := Begin(m, WithSessionLogger(discardLogger()))
	b := Begin(m, WithSessionLogger(discardLogger()))
	defer a.Close()
	defer b.Close()

	if a.ID == b.ID {
		t.Error("two sessions share an ID")
	}
}
