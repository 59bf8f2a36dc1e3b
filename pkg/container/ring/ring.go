package ring

// Ring is a fixed-capacity buffer. Pushing over capacity evicts the oldest
// item. It is not safe for concurrent use.
type Ring struct {
	items []interface{}
	head  int
	size  int
}

func New(capacity int) *Ring {
	if capacity < 1 {
		panic("ring: capacity must be >= 1")
	}
	return &Ring{items: make([]interface{}, capacity)}
}

// Push appends an item, evicting the oldest one when the ring is full.
func (r *Ring) Push(v interface{}) {
	idx := (r.head + r.size) % len(r.items)
	r.items[idx] = v
	if r.size < len(r.items) {
		r.size++
		return
	}
	r.head = (r.head + 1) % len(r.items)
}

// Items returns the buffered items ordered from oldest to newest.
func (r *Ring) Items() []interface{} {
	out := make([]interface{}, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(r.head+i)%len(r.items)])
	}
	return out
}

func (r *Ring) Len() int {
	return r.size
}

func (r *Ring) Cap() int {
	return len(r.items)
}

// Reset drops all buffered items keeping the capacity.
func (r *Ring) Reset() {
	for i := range r.items {
		r.items[i] = nil
	}
	r.head, r.size = 0, 0
}
