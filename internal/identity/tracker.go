package identity

import "sync"

// Tracker remembers the most recently resolved conversation per channel.
// Inbound messages write to it; recall and turn capture only read it, since
// outbound events rarely carry conversation fields of their own.
type Tracker struct {
	mu     sync.RWMutex
	byChan map[string]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byChan: make(map[string]string)}
}

// Remember records id as the latest conversation seen on channel.
func (t *Tracker) Remember(channel, id string) {
	t.mu.Lock()
	t.byChan[ChannelBase(channel)] = id
	t.mu.Unlock()
}

// Last returns the latest conversation seen on channel.
func (t *Tracker) Last(channel string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byChan[ChannelBase(channel)]
	return id, ok
}

// Snapshot copies the current channel table.
func (t *Tracker) Snapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.byChan))
	for k, v := range t.byChan {
		out[k] = v
	}
	return out
}
