package optimistic

import "sync"

// Token identifies one list-fetch attempt on a logical query channel. A
// response is applied only when its token is still current for that channel
// at response time.
type Token struct {
	channel string
	gen     uint64
}

// Channel returns the logical query channel the token belongs to.
func (t Token) Channel() string { return t.channel }

// Sequencer issues monotonically increasing generation tokens per logical
// query channel. Filters change faster than network latency, so a slow
// response for a stale filter must be discarded rather than applied; the
// sequencer is the discard decision.
//
// Channel names must be scoped to their owning context (for example
// "tasks/"+spaceID), so that switching the active space both supersedes and
// disposes the old channel.
type Sequencer struct {
	mu       sync.Mutex
	gens     map[string]uint64
	disposed map[string]bool
}

func NewSequencer() *Sequencer {
	return &Sequencer{
		gens:     make(map[string]uint64),
		disposed: make(map[string]bool),
	}
}

// Begin starts a fetch on the channel and returns its token. Any token issued
// earlier on the same channel is superseded. Beginning a fetch on a disposed
// channel reactivates it; tokens from before disposal remain stale forever.
func (s *Sequencer) Begin(channel string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[channel]++
	delete(s.disposed, channel)
	return Token{channel: channel, gen: s.gens[channel]}
}

// Current reports whether the token is still the latest for its channel and
// the channel has not been disposed.
func (s *Sequencer) Current(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed[t.channel] {
		return false
	}
	return s.gens[t.channel] == t.gen
}

// Dispose permanently invalidates every in-flight token on the channel. Used
// when the channel's owning context goes away (the active space changed, a
// binding was rescoped): no result for a disposed channel is ever applied,
// even one that is current by counter value.
func (s *Sequencer) Dispose(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[channel]++
	s.disposed[channel] = true
}
