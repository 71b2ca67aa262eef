// Package audiocache holds synthesized audio between the webhook turn that
// produced it and the telephony platform's follow-up fetch.
package audiocache

import (
	"sync"
	"time"

	"github.com/warmline/warmline/server/internal/speech"
)

// DefaultTTL bounds how long a per-call reply stays retrievable. Calls are
// minutes long; anything older is an abandoned session.
const DefaultTTL = 15 * time.Minute

type entry struct {
	audio    speech.Audio
	storedAt time.Time
}

// Cache has two parts: a write-once greeting slot held for the life of the
// process, and a reply table keyed by call SID. Keying replies per call is
// what keeps two concurrent calls from hearing each other's audio.
type Cache struct {
	mu       sync.RWMutex
	greeting *speech.Audio
	replies  map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{replies: map[string]entry{}, ttl: ttl, now: time.Now}
}

// Greeting returns the static greeting audio, if populated.
func (c *Cache) Greeting() (speech.Audio, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.greeting == nil {
		return speech.Audio{}, false
	}
	return *c.greeting, true
}

// PutGreeting stores the greeting once. Later calls are ignored so the slot
// stays stable for the process lifetime.
func (c *Cache) PutGreeting(a speech.Audio) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.greeting == nil {
		c.greeting = &a
	}
}

// PutReply stores the latest reply for one call, pruning expired sessions.
// An empty callSID is rejected: without a session key the entry could only be
// delivered to the wrong call.
func (c *Cache) PutReply(callSID string, a speech.Audio) {
	if callSID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	c.replies[callSID] = entry{audio: a, storedAt: c.now()}
}

// Reply returns the pending audio for a call. An empty callSID is always
// absent; there is no cross-call fallback.
func (c *Cache) Reply(callSID string) (speech.Audio, bool) {
	if callSID == "" {
		return speech.Audio{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	e, ok := c.replies[callSID]
	if !ok {
		return speech.Audio{}, false
	}
	return e.audio, true
}

// Evict drops a call's reply explicitly (call ended).
func (c *Cache) Evict(callSID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.replies, callSID)
}

func (c *Cache) pruneLocked() {
	cutoff := c.now().Add(-c.ttl)
	for sid, e := range c.replies {
		if e.storedAt.Before(cutoff) {
			delete(c.replies, sid)
		}
	}
}
