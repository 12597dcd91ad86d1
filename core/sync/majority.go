package sync

import (
	"example.com/driftwatch/base/intmath"
)

const (
	DefaultHistorySize      = 16
	DefaultAllowedDeviation = 500
)

// MajorityFilter decides, once per reference-event tick, whether a
// paired isochronous event stream has drifted out of synchronization
// with its reference, and by how much.
//
// It keeps a History of the most recent deviation samples together with
// incrementally maintained aggregates: the count of out-of-sync samples,
// those whose absolute value exceeds the allowed deviation, and their
// sum. When more than half of the window is out-of-sync, Do returns the
// average out-of-sync deviation as the suggested correction.
//
// The aggregates are exact for the current window contents regardless of
// how many ticks have occurred. They do not guard against overflow: the
// caller must choose window size and sample magnitude such that their
// product fits in an int64.
//
// A MajorityFilter must be initialized with Reset before use and must
// not be driven by more than one goroutine at a time. Independent
// filters share no state.
type MajorityFilter struct {
	hist            History
	halfHistorySize int
	maxDeviation    int64
	misses          int
	outOfSyncSum    int64
	totalSum        int64
}

// Reset binds the filter to caller-supplied history storage (len ≥ 1)
// and sets the allowed deviation threshold (≥ 0, in the same unit as the
// samples). All window contents and aggregates are cleared. Reset may be
// called again at any time, e.g. to change the window size or threshold.
func (f *MajorityFilter) Reset(buf []int64, allowedDeviation int64) {
	if allowedDeviation < 0 {
		panic("unexpected allowed deviation")
	}
	f.hist.Reset(buf)
	f.halfHistorySize = len(buf) / 2
	f.maxDeviation = allowedDeviation
	f.misses = 0
	f.outOfSyncSum = 0
	f.totalSum = 0
}

// Do accepts the deviation measured for the current reference event,
// slides the window by one sample, and returns the suggested correction:
// zero if no correction is needed, otherwise the average of the
// out-of-sync samples in the window (integer division, truncated toward
// zero, sign following the drift direction). The return value is
// advisory; applying it is the caller's responsibility.
//
// Do runs in O(1) time and performs no allocation.
func (f *MajorityFilter) Do(deviation int64) int64 {
	if f.hist.samples == nil {
		panic("filter not initialized")
	}

	tail := f.hist.Last()

	f.totalSum -= tail
	f.totalSum += deviation

	if intmath.Abs(tail) > f.maxDeviation {
		f.misses--
		f.outOfSyncSum -= tail
	}
	if intmath.Abs(deviation) > f.maxDeviation {
		f.misses++
		f.outOfSyncSum += deviation
	}

	f.hist.Insert(deviation)

	if f.misses > f.halfHistorySize {
		return f.outOfSyncSum / int64(f.misses)
	}
	return 0
}

// Misses returns the number of out-of-sync samples currently in the
// window.
func (f *MajorityFilter) Misses() int {
	return f.misses
}

// OutOfSyncSum returns the sum of the out-of-sync samples currently in
// the window.
func (f *MajorityFilter) OutOfSyncSum() int64 {
	return f.outOfSyncSum
}

// TotalSum returns the sum of all samples currently in the window. It is
// maintained alongside the decision aggregates but never consulted by
// the decision itself.
func (f *MajorityFilter) TotalSum() int64 {
	return f.totalSum
}
