package orchestrator

import "sync"

// observerSet fans events out to subscribers in subscription order.
type observerSet struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id  int
	obs Observer
}

func (s *observerSet) add(obs Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, obs: obs})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *observerSet) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify delivers ev to a copy of the subscriber list so observers may
// unsubscribe from inside Notify.
func (s *observerSet) notify(ev Event) {
	s.mu.RLock()
	subs := append([]subscription(nil), s.subs...)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.obs.Notify(ev)
	}
}
