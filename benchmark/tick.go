package benchmark

import (
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	csync "example.com/driftwatch/core/sync"
)

// RunTickBenchmark measures the per-tick latency of the majority filter,
// fed with uniformly distributed deviations of which roughly half are
// out-of-sync.
func RunTickBenchmark(historySize int, allowedDeviation int64) {
	const numWorkerGoroutine = 1
	const numTicksPerWorker = 10_000_000
	var mu sync.Mutex
	sg := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(numWorkerGoroutine)
	for i := numWorkerGoroutine; i > 0; i-- {
		go func(id int) {
			hg := hdrhistogram.New(1, 1_000_000, 5)

			f := new(csync.MajorityFilter)
			f.Reset(make([]int64, historySize), allowedDeviation)
			prng := rand.New(rand.NewSource(int64(id)))
			span := 4*allowedDeviation + 1

			defer wg.Done()
			<-sg
			for j := numTicksPerWorker; j > 0; j-- {
				d := prng.Int63n(span) - span/2

				t0 := time.Now()
				_ = f.Do(d)

				err := hg.RecordValue(time.Since(t0).Nanoseconds())
				if err != nil {
					log.Printf("Failed to record histogram value: %v", err)
					return
				}
			}
			mu.Lock()
			defer mu.Unlock()
			hg.PercentilesPrint(os.Stdout, 1, 1.0)
		}(i)
	}
	t0 := time.Now()
	close(sg)
	wg.Wait()
	log.Print(time.Since(t0))
}
