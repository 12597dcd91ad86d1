package sync_test

import (
	"math/rand"
	"testing"

	"example.com/driftwatch/core/sync"
)

func TestCorrectionAverage(t *testing.T) {
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, 4), 10)

	// half = 2, so the third out-of-sync sample triggers the correction
	inputs := []int64{20, 20, 20, 0}
	expected := []int64{0, 0, 20, 20}

	for i, d := range inputs {
		corr := f.Do(d)
		if corr != expected[i] {
			t.Errorf("Do(%d) = %d; expected %d", d, corr, expected[i])
		}
	}
	if m := f.Misses(); m != 3 {
		t.Errorf("Misses() = %d; expected 3", m)
	}
	if s := f.OutOfSyncSum(); s != 60 {
		t.Errorf("OutOfSyncSum() = %d; expected 60", s)
	}
	if s := f.TotalSum(); s != 60 {
		t.Errorf("TotalSum() = %d; expected 60", s)
	}
}

func TestEviction(t *testing.T) {
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, 2), 5)

	// window [10,0]: one miss does not beat half = 1
	if corr := f.Do(10); corr != 0 {
		t.Errorf("Do(10) = %d; expected 0", corr)
	}
	// window [10,10]
	if corr := f.Do(10); corr != 10 {
		t.Errorf("Do(10) = %d; expected 10", corr)
	}
	// evicts the first 10, window unchanged
	if corr := f.Do(10); corr != 10 {
		t.Errorf("Do(10) = %d; expected 10", corr)
	}
	if m := f.Misses(); m != 2 {
		t.Errorf("Misses() = %d; expected 2", m)
	}
}

func TestZeroDeviations(t *testing.T) {
	const historySize = 8
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, historySize), 10)

	for i := 0; i < historySize; i++ {
		if corr := f.Do(0); corr != 0 {
			t.Errorf("Do(0) = %d; expected 0", corr)
		}
		if m := f.Misses(); m != 0 {
			t.Errorf("Misses() = %d; expected 0", m)
		}
	}
}

func TestMajorityBoundary(t *testing.T) {
	const historySize = 4
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, historySize), 10)

	// exactly half out-of-sync must not trigger
	f.Do(25)
	corr := f.Do(25)
	if corr != 0 {
		t.Errorf("correction at misses == half = %d; expected 0", corr)
	}
	if m := f.Misses(); m != 2 {
		t.Errorf("Misses() = %d; expected 2", m)
	}

	// one more than half must trigger
	corr = f.Do(25)
	if corr != 25 {
		t.Errorf("correction at misses == half+1 = %d; expected 25", corr)
	}
}

func TestNegativeDrift(t *testing.T) {
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, 3), 10)

	f.Do(-20)
	corr := f.Do(-30)
	if corr != -25 {
		t.Errorf("Do(-30) = %d; expected -25", corr)
	}
}

func TestSizeOneWindow(t *testing.T) {
	// half = 0, so a single out-of-sync sample triggers immediately and
	// the correction equals that sample's own value
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, 1), 10)

	if corr := f.Do(50); corr != 50 {
		t.Errorf("Do(50) = %d; expected 50", corr)
	}
	if corr := f.Do(5); corr != 0 {
		t.Errorf("Do(5) = %d; expected 0", corr)
	}
	if corr := f.Do(-30); corr != -30 {
		t.Errorf("Do(-30) = %d; expected -30", corr)
	}
}

func TestResetClearsState(t *testing.T) {
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, 4), 10)

	for _, d := range []int64{20, -20, 30, 40, 50} {
		f.Do(d)
	}

	f.Reset(make([]int64, 4), 10)
	if m := f.Misses(); m != 0 {
		t.Errorf("Misses() after reset = %d; expected 0", m)
	}
	if s := f.OutOfSyncSum(); s != 0 {
		t.Errorf("OutOfSyncSum() after reset = %d; expected 0", s)
	}
	if s := f.TotalSum(); s != 0 {
		t.Errorf("TotalSum() after reset = %d; expected 0", s)
	}

	// behaves like a fresh instance
	inputs := []int64{20, 20, 20, 0}
	expected := []int64{0, 0, 20, 20}
	for i, d := range inputs {
		corr := f.Do(d)
		if corr != expected[i] {
			t.Errorf("Do(%d) after reset = %d; expected %d", d, corr, expected[i])
		}
	}
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// TestWindowInvariant drives the filter with pseudorandom deviations and
// checks the incremental aggregates against a naively recomputed window
// model after every tick.
func TestWindowInvariant(t *testing.T) {
	const (
		numTicks         = 10_000
		allowedDeviation = 100
	)

	for _, historySize := range []int{1, 2, 3, 4, 7, 16, 61} {
		f := new(sync.MajorityFilter)
		f.Reset(make([]int64, historySize), allowedDeviation)

		window := make([]int64, historySize)
		next := 0

		prng := rand.New(rand.NewSource(int64(historySize)))
		for i := 0; i < numTicks; i++ {
			d := prng.Int63n(6*allowedDeviation+1) - 3*allowedDeviation
			corr := f.Do(d)

			window[next] = d
			next = (next + 1) % historySize

			var misses int
			var outOfSyncSum, totalSum int64
			for _, w := range window {
				totalSum += w
				if abs(w) > allowedDeviation {
					misses++
					outOfSyncSum += w
				}
			}

			if m := f.Misses(); m != misses {
				t.Fatalf("size %d, tick %d: Misses() = %d; expected %d",
					historySize, i, m, misses)
			}
			if s := f.OutOfSyncSum(); s != outOfSyncSum {
				t.Fatalf("size %d, tick %d: OutOfSyncSum() = %d; expected %d",
					historySize, i, s, outOfSyncSum)
			}
			if s := f.TotalSum(); s != totalSum {
				t.Fatalf("size %d, tick %d: TotalSum() = %d; expected %d",
					historySize, i, s, totalSum)
			}

			var expectedCorr int64
			if misses > historySize/2 {
				expectedCorr = outOfSyncSum / int64(misses)
			}
			if corr != expectedCorr {
				t.Fatalf("size %d, tick %d: Do(%d) = %d; expected %d",
					historySize, i, d, corr, expectedCorr)
			}
		}
	}
}

func TestDoBeforeReset(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Do on uninitialized filter did not panic")
		}
	}()
	f := new(sync.MajorityFilter)
	f.Do(1)
}

func TestNegativeAllowedDeviation(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Reset with negative allowed deviation did not panic")
		}
	}()
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, 4), -1)
}
