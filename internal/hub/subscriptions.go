package hub

import (
	"errors"
	"sync"
)

// Errors
var (
	ErrInvalidChannel    = errors.New("invalid channel name")
	ErrSubscriptionLimit = errors.New("subscription limit exceeded")
)

// Subscriptions is the bidirectional channel<->client index. Both maps live
// under one mutex so the per-client cap and the non-empty-channel invariant
// hold under concurrent subscribe/unsubscribe/disconnect.
type Subscriptions struct {
	mu  sync.RWMutex
	max int

	byChannel map[string]map[string]struct{} // channel -> set of client ids
	byClient  map[string]map[string]struct{} // client id -> set of channels
}

// NewSubscriptions creates an empty index with a per-client cap.
func NewSubscriptions(maxPerClient int) *Subscriptions {
	if maxPerClient < 1 {
		maxPerClient = 1
	}
	return &Subscriptions{
		max:       maxPerClient,
		byChannel: make(map[string]map[string]struct{}),
		byClient:  make(map[string]map[string]struct{}),
	}
}

// Subscribe adds clientID to channel and returns the channel's subscriber
// count. Fails with ErrInvalidChannel or ErrSubscriptionLimit; re-subscribing
// an already-held channel is a no-op success.
func (s *Subscriptions) Subscribe(clientID, channel string) (int, error) {
	if !ValidChannel(channel) {
		return 0, ErrInvalidChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held := s.byClient[clientID]
	if _, ok := held[channel]; ok {
		return len(s.byChannel[channel]), nil
	}
	if len(held) >= s.max {
		return 0, ErrSubscriptionLimit
	}

	if held == nil {
		held = make(map[string]struct{})
		s.byClient[clientID] = held
	}
	held[channel] = struct{}{}

	subs := s.byChannel[channel]
	if subs == nil {
		subs = make(map[string]struct{})
		s.byChannel[channel] = subs
	}
	subs[clientID] = struct{}{}

	return len(subs), nil
}

// Unsubscribe removes clientID from channel and returns the remaining
// subscriber count. Unknown pairs return the current count unchanged.
func (s *Subscriptions) Unsubscribe(clientID, channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.byClient[clientID]; ok {
		delete(held, channel)
		if len(held) == 0 {
			delete(s.byClient, clientID)
		}
	}

	subs, ok := s.byChannel[channel]
	if !ok {
		return 0
	}
	delete(subs, clientID)
	if len(subs) == 0 {
		delete(s.byChannel, channel)
		return 0
	}
	return len(subs)
}

// Subscribers returns the client ids subscribed to channel.
func (s *Subscriptions) Subscribers(channel string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := s.byChannel[channel]
	if len(subs) == 0 {
		return nil
	}
	out := make([]string, 0, len(subs))
	for id := range subs {
		out = append(out, id)
	}
	return out
}

// HasSubscribers reports whether channel has at least one subscriber.
func (s *Subscriptions) HasSubscribers(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byChannel[channel]) > 0
}

// Channels returns the channels held by clientID.
func (s *Subscriptions) Channels(clientID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	held := s.byClient[clientID]
	if len(held) == 0 {
		return nil
	}
	out := make([]string, 0, len(held))
	for ch := range held {
		out = append(out, ch)
	}
	return out
}

// Count returns the number of channels held by clientID.
func (s *Subscriptions) Count(clientID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byClient[clientID])
}

// RemoveAll drops every subscription held by clientID and returns the
// channels it was removed from. Channels left empty are pruned.
func (s *Subscriptions) RemoveAll(clientID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	held, ok := s.byClient[clientID]
	if !ok {
		return nil
	}
	delete(s.byClient, clientID)

	channels := make([]string, 0, len(held))
	for ch := range held {
		channels = append(channels, ch)
		if subs, ok := s.byChannel[ch]; ok {
			delete(subs, clientID)
			if len(subs) == 0 {
				delete(s.byChannel, ch)
			}
		}
	}
	return channels
}

// ChannelCount returns the number of channels with subscribers.
func (s *Subscriptions) ChannelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byChannel)
}

// Total returns the total number of (client, channel) pairs.
func (s *Subscriptions) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, held := range s.byClient {
		total += len(held)
	}
	return total
}
