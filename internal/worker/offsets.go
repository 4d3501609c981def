package worker

import (
	"sync"

	"github.com/jmehdipour/washcorner-notify/internal/kafka"
)

// offsetTracker releases commits per partition in fetch order: a message is
// only committed once it and every earlier fetched message of its partition
// are done, so a commit never skips an in-flight event.
type offsetTracker struct {
	mu    sync.Mutex
	parts map[int]*partitionOffsets
}

type partitionOffsets struct {
	queue []kafka.Message // fetched, not yet committed, in fetch order
	done  map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{parts: make(map[int]*partitionOffsets)}
}

// Start registers m as in flight. Must be called in fetch order.
func (t *offsetTracker) Start(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.parts[m.Partition]
	if !ok {
		p = &partitionOffsets{done: make(map[int64]bool)}
		t.parts[m.Partition] = p
	}
	p.queue = append(p.queue, m)
}

// Done marks m finished and calls commit with the highest message whose
// predecessors are all done, if any. commit runs under the tracker lock so
// commits of one partition never go backwards.
func (t *offsetTracker) Done(m kafka.Message, commit func(kafka.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.parts[m.Partition]
	if !ok {
		return
	}
	p.done[m.Offset] = true

	var last *kafka.Message
	for len(p.queue) > 0 && p.done[p.queue[0].Offset] {
		head := p.queue[0]
		delete(p.done, head.Offset)
		p.queue = p.queue[1:]
		last = &head
	}
	if last != nil {
		commit(*last)
	}
}
