package equeue

import (
	"container/list"
)

// Queue is an unbounded FIFO decoupling a producer from a single consumer.
// Push never blocks; the buffered backlog is drained to the pull channel by
// Loop. After Close the backlog is still delivered before the pull channel
// is closed.
type Queue struct {
	buf  *list.List
	push chan interface{}
	pull chan interface{}
}

func New() *Queue {
	return &Queue{
		buf:  list.New(),
		push: make(chan interface{}, 1),
		pull: make(chan interface{}, 1),
	}
}

func (q *Queue) Push(v interface{}) {
	q.push <- v
}

func (q *Queue) Pull() <-chan interface{} {
	return q.pull
}

func (q *Queue) Len() int {
	return q.buf.Len()
}

func (q *Queue) Close() {
	close(q.push)
}

// Loop moves items from the push side to the pull side keeping the overflow
// in the internal buffer. It returns after Close once the buffer is empty.
func (q *Queue) Loop() {
	for {
		front := q.buf.Front()
		if front != nil {
			select {
			case q.pull <- front.Value:
				q.buf.Remove(front)
			case value, ok := <-q.push:
				if ok {
					q.buf.PushBack(value)
				} else {
					q.push = nil
				}
			}
			continue
		}

		if q.push == nil {
			close(q.pull)
			return
		}
		value, ok := <-q.push
		if !ok {
			close(q.pull)
			return
		}
		q.buf.PushBack(value)
	}
}
