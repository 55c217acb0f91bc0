package eventloop

import "github.com/haasonsaas/agentcore/pkg/models"

// eventItem wraps a models.Event with the monotonic insertion sequence used
// to break ties between events sharing an expiration time.
type eventItem struct {
	event models.Event
	seq   uint64
}

// eventHeap is a container/heap.Interface ordering events by ExpiresAt
// ascending, ties broken by insertion order.
type eventHeap []*eventItem

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].event.ExpiresAt != h[j].event.ExpiresAt {
		return h[i].event.ExpiresAt < h[j].event.ExpiresAt
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*eventItem))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
