package transform

import "sync"

// Subscription is the handle returned by State.Subscribe. Release detaches
// the listener; only the first call has an effect.
type Subscription struct {
	id    uint64
	fn    func(Placement)
	state *State
	once  sync.Once
}

// Subscribe registers fn to receive the placement after every recomputation.
func (s *State) Subscribe(fn func(Placement)) *Subscription {
	s.nextID++
	sub := &Subscription{id: s.nextID, fn: fn, state: s}
	s.subs = append(s.subs, sub)
	return sub
}

// Release detaches the listener.
func (sub *Subscription) Release() {
	sub.once.Do(func() {
		sub.state.subs = removeSub(sub.state.subs, sub.id)
	})
}

// Listeners returns the number of attached subscriptions.
func (s *State) Listeners() int {
	return len(s.subs)
}

func (s *State) notify() {
	if len(s.subs) == 0 {
		return
	}
	p := s.placement
	// Copy so a listener can release itself mid-dispatch.
	subs := append([]*Subscription(nil), s.subs...)
	for _, sub := range subs {
		sub.fn(p)
	}
}

func removeSub(subs []*Subscription, id uint64) []*Subscription {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}
