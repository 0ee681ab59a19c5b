// Package worklist implements the solver's active-node queue (§4.5),
// modeled on the FIFO/LIFO/ID/PRIO worklist variants of the original
// implementation, including its dual-buffer discipline: nodes are
// pushed to a staging buffer while the active buffer is drained, so a
// single solver pass has a stable view of "this round's work" even as
// propagation discovers more of it.
package worklist

import (
	"container/heap"

	"github.com/kahrendsen/andersgo/pkg/collections"
)

// Order selects the discipline used to pick the next node off the
// worklist when it is not empty.
type Order int

const (
	OrderFIFO Order = iota
	OrderLIFO
	OrderID
	OrderPrio
)

// Worklist is a queue of node indices (engine.NodeID, kept here as a
// plain int to avoid an import cycle) awaiting reprocessing.
type Worklist struct {
	order Order
	dual  bool

	active  []int
	fifo    *collections.Queue[int]
	staging []prioItem
	inSet   map[int]bool

	prio *prioQueue
}

// New creates a worklist with the given ordering discipline. When dual
// is true, Push adds to a staging buffer instead of the active one;
// Swap must be called between solver rounds to promote staged work.
func New(order Order, dual bool) *Worklist {
	w := &Worklist{order: order, dual: dual, inSet: make(map[int]bool)}
	switch order {
	case OrderPrio:
		w.prio = newPrioQueue()
	case OrderFIFO:
		// A dedicated FIFO queue dequeues without the backing-array
		// leak a plain slice re-slice (active[1:]) would accumulate.
		w.fifo = collections.NewQueue[int](256)
	}
	return w
}

// Push adds id to the worklist if it is not already pending. With a
// priority ordering, priority ties are broken by insertion order.
func (w *Worklist) Push(id int, priority int) {
	if w.inSet[id] {
		return
	}
	w.inSet[id] = true

	if w.dual {
		w.staging = append(w.staging, prioItem{id: id, priority: priority})
		return
	}

	switch w.order {
	case OrderPrio:
		heap.Push(w.prio, prioItem{id: id, priority: priority})
	case OrderFIFO:
		w.fifo.Enqueue(id)
	default:
		w.active = append(w.active, id)
	}
}

// Swap promotes the staging buffer into the active buffer. A no-op
// unless the worklist was created with dual=true.
func (w *Worklist) Swap() {
	if !w.dual {
		return
	}
	switch w.order {
	case OrderPrio:
		for _, it := range w.staging {
			heap.Push(w.prio, it)
		}
	case OrderFIFO:
		for _, it := range w.staging {
			w.fifo.Enqueue(it.id)
		}
	default:
		for _, it := range w.staging {
			w.active = append(w.active, it.id)
		}
	}
	w.staging = w.staging[:0]
}

// Pop removes and returns the next node according to the worklist's
// ordering discipline. ok is false if the worklist is empty.
func (w *Worklist) Pop() (id int, ok bool) {
	switch w.order {
	case OrderFIFO:
		v, okDeq := w.fifo.Dequeue()
		if !okDeq {
			return 0, false
		}
		id = v
	case OrderLIFO:
		if len(w.active) == 0 {
			return 0, false
		}
		id = w.active[len(w.active)-1]
		w.active = w.active[:len(w.active)-1]
	case OrderID:
		if len(w.active) == 0 {
			return 0, false
		}
		minIdx := 0
		for i, v := range w.active {
			if v < w.active[minIdx] {
				minIdx = i
			}
		}
		id = w.active[minIdx]
		w.active = append(w.active[:minIdx], w.active[minIdx+1:]...)
	case OrderPrio:
		if w.prio.Len() == 0 {
			return 0, false
		}
		item := heap.Pop(w.prio).(prioItem)
		id = item.id
	default:
		return 0, false
	}
	delete(w.inSet, id)
	return id, true
}

// Empty reports whether both the active and staging buffers are empty.
func (w *Worklist) Empty() bool {
	switch w.order {
	case OrderPrio:
		return w.prio.Len() == 0 && len(w.staging) == 0
	case OrderFIFO:
		return w.fifo.IsEmpty() && len(w.staging) == 0
	default:
		return len(w.active) == 0 && len(w.staging) == 0
	}
}

// Len returns the total number of pending entries across both buffers.
func (w *Worklist) Len() int {
	n := len(w.staging)
	switch w.order {
	case OrderPrio:
		n += w.prio.Len()
	case OrderFIFO:
		n += w.fifo.Len()
	default:
		n += len(w.active)
	}
	return n
}

// prioItem is one entry in the priority worklist: lower priority values
// are popped first. The solver uses this for WL_PRIO = LRF
// (least-recently-fired): priority is a node's last-fired vtime, so a
// node that hasn't run recently (or hasn't run at all) is scheduled
// ahead of one that just ran.
type prioItem struct {
	id       int
	priority int
	seq      int
}

type prioQueue struct {
	items []prioItem
	next  int
}

func newPrioQueue() *prioQueue { return &prioQueue{} }

func (q *prioQueue) Len() int { return len(q.items) }
func (q *prioQueue) Less(i, j int) bool {
	if q.items[i].priority != q.items[j].priority {
		return q.items[i].priority < q.items[j].priority
	}
	return q.items[i].seq < q.items[j].seq
}
func (q *prioQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *prioQueue) Push(x any) {
	it := x.(prioItem)
	it.seq = q.next
	q.next++
	q.items = append(q.items, it)
}
func (q *prioQueue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items = q.items[:n-1]
	return it
}
