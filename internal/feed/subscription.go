package feed

import "sync"

// Subscription yields events on C until Close is called or the source ends,
// after which C is closed. Close is safe to call more than once.
type Subscription struct {
	C <-chan Event

	once sync.Once
	stop func()
}

func NewSubscription(c <-chan Event, stop func()) *Subscription {
	return &Subscription{C: c, stop: stop}
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}
