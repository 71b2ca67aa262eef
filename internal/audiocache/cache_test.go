package audiocache

import (
	"sync"
	"testing"
	"time"

	"github.com/warmline/warmline/server/internal/speech"
)

func audio(s string) speech.Audio {
	return speech.Audio{Bytes: []byte(s), ContentType: "audio/mpeg"}
}

func TestGreeting_WriteOnce(t *testing.T) {
	c := New(0)
	if _, ok := c.Greeting(); ok {
		t.Fatal("greeting should start absent")
	}
	c.PutGreeting(audio("first"))
	c.PutGreeting(audio("second"))
	got, ok := c.Greeting()
	if !ok || string(got.Bytes) != "first" {
		t.Fatalf("greeting slot must be write-once: %q ok=%v", got.Bytes, ok)
	}
}

func TestReply_KeyedPerCall(t *testing.T) {
	c := New(0)
	c.PutReply("CA1", audio("for-call-1"))
	c.PutReply("CA2", audio("for-call-2"))

	// A second call's reply must not overwrite the first call's pending audio.
	got, ok := c.Reply("CA1")
	if !ok || string(got.Bytes) != "for-call-1" {
		t.Fatalf("cross-call delivery: %q ok=%v", got.Bytes, ok)
	}
	got, ok = c.Reply("CA2")
	if !ok || string(got.Bytes) != "for-call-2" {
		t.Fatalf("call 2 reply: %q ok=%v", got.Bytes, ok)
	}
}

func TestReply_EmptySIDNeverServesAnotherCall(t *testing.T) {
	c := New(0)
	c.PutReply("CA1", audio("one"))
	c.PutReply("CA2", audio("two"))
	if got, ok := c.Reply(""); ok {
		t.Fatalf("empty session key must be absent, got %q", got.Bytes)
	}
	c.PutReply("", audio("keyless"))
	if got, ok := c.Reply(""); ok {
		t.Fatalf("keyless store must be dropped, got %q", got.Bytes)
	}
}

func TestReply_TTLExpiry(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.PutReply("CA1", audio("stale"))
	now = now.Add(2 * time.Minute)
	if _, ok := c.Reply("CA1"); ok {
		t.Fatal("expired reply still retrievable")
	}
}

func TestEvict(t *testing.T) {
	c := New(0)
	c.PutReply("CA1", audio("bye"))
	c.Evict("CA1")
	if _, ok := c.Reply("CA1"); ok {
		t.Fatal("evicted reply still retrievable")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sid := string(rune('A' + n))
			for j := 0; j < 100; j++ {
				c.PutReply(sid, audio(sid))
				if got, ok := c.Reply(sid); ok && string(got.Bytes) != sid {
					t.Errorf("wrong audio for %s: %q", sid, got.Bytes)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
