// Package lowerbound computes LB_Keogh lower bounds for banded elastic
// distances.
//
// A Cache holds the upper and lower envelopes of a set of candidate
// sequences for one window. It is built once per (sequences, window) pair and
// is read-only afterwards; a caller that changes the window builds a new one.
package lowerbound

// Envelope returns the running maximum and minimum of seq over
// [i-window, i+window] for every i, in O(len(seq)) using monotonic deques.
func Envelope(seq []float64, window int) (upper, lower []float64) {
	n := len(seq)
	upper = make([]float64, n)
	lower = make([]float64, n)
	if window < 0 {
		window = 0
	}

	maxQ := newDeque(n)
	minQ := newDeque(n)
	next := 0
	for i := 0; i < n; i++ {
		hi := i + window
		if hi > n-1 {
			hi = n - 1
		}
		for ; next <= hi; next++ {
			for !maxQ.empty() && seq[maxQ.back()] <= seq[next] {
				maxQ.popBack()
			}
			maxQ.pushBack(next)
			for !minQ.empty() && seq[minQ.back()] >= seq[next] {
				minQ.popBack()
			}
			minQ.pushBack(next)
		}
		lo := i - window
		for maxQ.front() < lo {
			maxQ.popFront()
		}
		for minQ.front() < lo {
			minQ.popFront()
		}
		upper[i] = seq[maxQ.front()]
		lower[i] = seq[minQ.front()]
	}
	return upper, lower
}

type deque struct {
	buf  []int
	head int
}

func newDeque(capacity int) *deque {
	return &deque{buf: make([]int, 0, capacity)}
}

func (d *deque) empty() bool {
	return d.head == len(d.buf)
}

func (d *deque) front() int {
	return d.buf[d.head]
}

func (d *deque) back() int {
	return d.buf[len(d.buf)-1]
}

func (d *deque) pushBack(v int) {
	d.buf = append(d.buf, v)
}

func (d *deque) popBack() {
	d.buf = d.buf[:len(d.buf)-1]
}

func (d *deque) popFront() {
	d.head++
}
