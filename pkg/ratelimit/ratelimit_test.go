package ratelimit

import (
	"testing"
	"time"
)

func TestAllow_WithinLimit(t *testing.T) {
	l := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		v := l.Allow("k")
		if !v.Allowed {
			t.Fatalf("call %d denied", i+1)
		}
	}
	v := l.Allow("k")
	if v.Allowed {
		t.Fatal("fourth call allowed")
	}
	if v.RetryAfter <= 0 {
		t.Fatalf("retryAfter=%v", v.RetryAfter)
	}
}

func TestAllow_KeysIndependent(t *testing.T) {
	l := New(1, time.Minute)
	if !l.Allow("a").Allowed {
		t.Fatal("a denied")
	}
	if !l.Allow("b").Allowed {
		t.Fatal("b denied")
	}
	if l.Allow("a").Allowed {
		t.Fatal("a allowed over limit")
	}
}

func TestAllow_WindowResets(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("k").Allowed {
		t.Fatal("first call denied")
	}
	if l.Allow("k").Allowed {
		t.Fatal("second call allowed")
	}
	now = now.Add(time.Minute)
	if !l.Allow("k").Allowed {
		t.Fatal("call after reset denied")
	}
}

func TestSweep_DropsExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Minute)
	l.Allow("new")

	l.mu.Lock()
	_, ok := l.windows["old"]
	l.mu.Unlock()
	if ok {
		t.Fatal("expired window retained")
	}
}

func TestNew_Defaults(t *testing.T) {
	l := New(0, 0)
	if l.limit != 1 || l.period != time.Minute {
		t.Fatalf("limit=%d period=%v", l.limit, l.period)
	}
}
