package services

import "sync"

type subscription[T any] struct {
	id int
	fn func(T)
}

// observers is an ordered set of callbacks. notify calls them in
// subscription order.
type observers[T any] struct {
	mu   sync.Mutex
	next int
	subs []subscription[T]
}

// add registers fn and returns a function that removes it. The returned
// function may be called more than once.
func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.subs = append(o.subs, subscription[T]{id: id, fn: fn})

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *observers[T]) notify(v T) {
	o.mu.Lock()
	subs := make([]subscription[T], len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

func (o *observers[T]) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}
