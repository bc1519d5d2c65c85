package httpmiddleware

import (
	"testing"
	"time"
)

func TestTokenBucketExhaustsAndRefills(t *testing.T) {
	l := NewTokenBucket(2, 60) // 2 burst, 1/s refill
	now := time.Now()

	if !l.allow("a", now) || !l.allow("a", now) {
		t.Fatal("first two requests should pass")
	}
	if l.allow("a", now) {
		t.Error("third immediate request should be limited")
	}
	if !l.allow("b", now) {
		t.Error("other clients should have their own bucket")
	}
	if !l.allow("a", now.Add(2*time.Second)) {
		t.Error("bucket should refill after elapsed time")
	}
}
