package ratelimiter

import (
	"testing"
	"time"
)

func TestAllowPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Unix(1700000000, 0)

	if !l.Allow("alice", now) || !l.Allow("alice", now) {
		t.Fatal("burst tokens should be available")
	}
	if l.Allow("alice", now) {
		t.Fatal("third request in the same instant should be denied")
	}
	if !l.Allow("bob", now) {
		t.Fatal("keys must not share buckets")
	}
	if !l.Allow("alice", now.Add(2*time.Second)) {
		t.Fatal("tokens should refill over time")
	}
}

func TestNilAndEmptyKeyPassThrough(t *testing.T) {
	var l *MapLimiter
	if !l.Allow("anything", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if !New(1, 1, 0).Allow("  ", time.Now()) {
		t.Fatal("blank key must allow")
	}
}

func TestInvalidArgs(t *testing.T) {
	if New(0, 1, time.Minute) != nil {
		t.Fatal("zero rps is invalid")
	}
	if New(1, 0, time.Minute) != nil {
		t.Fatal("zero burst is invalid")
	}
}
