package mindtree

import (
	"maps"
	"slices"
	"sync"
)

// observers is a small subscribe/notify list. Callbacks run outside the lock
// in subscription order.
type observers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (o *observers[T]) subscribe(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fns == nil {
		o.fns = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers[T]) notify(v T) {
	o.mu.Lock()
	ids := slices.Sorted(maps.Keys(o.fns))
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.fns[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
