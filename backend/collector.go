package backend

import (
	"github.com/simidx/simidx/internal/queue"
	"github.com/simidx/simidx/metric"
)

// Collector keeps the k best candidates seen so far for a metric.
// The heap keeps the current worst candidate on top so it can be
// evicted in O(log k) when a better one arrives.
type Collector struct {
	m  metric.Metric
	k  int
	pq *queue.PriorityQueue
}

// NewCollector creates a collector for the k best candidates under m.
func NewCollector(m metric.Metric, k int) *Collector {
	var pq *queue.PriorityQueue
	if m.HigherIsBetter() {
		pq = queue.NewMin(k)
	} else {
		pq = queue.NewMax(k)
	}
	return &Collector{m: m, k: k, pq: pq}
}

// Offer considers a candidate for the result set.
func (c *Collector) Offer(position int64, score float32) {
	if c.pq.Len() < c.k {
		c.pq.Push(queue.Item{Position: position, Score: score})
		return
	}
	worst, _ := c.pq.Top()
	if c.m.Better(score, worst.Score) {
		c.pq.Pop()
		c.pq.Push(queue.Item{Position: position, Score: score})
	}
}

// Len returns the number of collected candidates.
func (c *Collector) Len() int { return c.pq.Len() }

// Results drains the collector and returns candidates ranked best-first.
func (c *Collector) Results() []SearchResult {
	out := make([]SearchResult, c.pq.Len())
	for i := len(out) - 1; i >= 0; i-- {
		item, _ := c.pq.Pop()
		out[i] = SearchResult{Position: item.Position, Score: item.Score}
	}
	return out
}
