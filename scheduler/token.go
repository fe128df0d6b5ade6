package scheduler

import "sync"

// Token parks a caller until a completion hook resumes it.  A launch that
// carries a token resumes it exactly once when the child exits; extra Resume
// calls are no-ops, so a stray double completion cannot panic or unblock a
// second waiter.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken creates a token in the parked state
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Resume releases the token.  Safe to call from any goroutine, any number of
// times.
func (t *Token) Resume() {
	t.once.Do(func() {
		close(t.done)
	})
}

// Done returns a channel that is closed once the token has been resumed.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Resumed reports whether Resume has been called
func (t *Token) Resumed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
