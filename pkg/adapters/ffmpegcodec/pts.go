package ffmpegcodec

import "container/heap"

// ptsQueue hands out the timestamps of submitted packets in presentation
// order, the order in which the decoder emits their pictures.
type ptsQueue []int64

func (q ptsQueue) Len() int           { return len(q) }
func (q ptsQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q ptsQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *ptsQueue) Push(x any) { *q = append(*q, x.(int64)) }

func (q *ptsQueue) Pop() any {
	old := *q
	n := len(old)
	v := old[n-1]
	*q = old[:n-1]
	return v
}

func (q *ptsQueue) add(pts int64) {
	heap.Push(q, pts)
}

// next removes and returns the smallest pending timestamp.
func (q *ptsQueue) next() (int64, bool) {
	if q.Len() == 0 {
		return 0, false
	}
	return heap.Pop(q).(int64), true
}

func (q *ptsQueue) reset() {
	*q = (*q)[:0]
}
