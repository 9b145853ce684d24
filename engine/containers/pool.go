package containers

// Pool hands out pointers to reusable values. Reset makes every value
// available again without releasing memory, so a steady state frame does
// not allocate.
type Pool[T any] struct {
	items []*T
	used  int
}

func NewPool[T any](capacity int) *Pool[T] {
	return &Pool[T]{
		items: make([]*T, 0, capacity),
	}
}

// Get returns a zeroed value owned by the pool until the next Reset.
func (p *Pool[T]) Get() *T {
	if p.used < len(p.items) {
		item := p.items[p.used]
		var zero T
		*item = zero
		p.used++
		return item
	}
	item := new(T)
	p.items = append(p.items, item)
	p.used++
	return item
}

func (p *Pool[T]) Reset() {
	p.used = 0
}

// Used is the number of values handed out since the last Reset.
func (p *Pool[T]) Used() int {
	return p.used
}

// Allocated is the number of values the pool owns.
func (p *Pool[T]) Allocated() int {
	return len(p.items)
}
