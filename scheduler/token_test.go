package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenResume(t *testing.T) {
	token := NewToken()
	assert.False(t, token.Resumed())

	// Done stays open until resumed
	select {
	case <-token.Done():
		t.Fatal("token resumed before Resume")
	default:
	}

	token.Resume()
	assert.True(t, token.Resumed())

	select {
	case <-token.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Resume")
	}
}

func TestTokenResumeIdempotent(t *testing.T) {
	token := NewToken()

	// A duplicate completion must be a harmless no-op
	token.Resume()
	token.Resume()
	token.Resume()

	assert.True(t, token.Resumed())
}

func TestTokenResumeFromPostedTask(t *testing.T) {
	s := New(DefaultConfig())
	token := NewToken()

	_ = s.Post(token.Resume)
	assert.False(t, token.Resumed())

	// The hook runs on the polling goroutine and releases the waiter
	assert.Equal(t, 1, s.Poll())
	assert.True(t, token.Resumed())
}
