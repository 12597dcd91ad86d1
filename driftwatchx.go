// Driver for quick experiments

package main

import (
	"go.uber.org/zap"

	"example.com/driftwatch/base/zaplog"

	"example.com/driftwatch/core/sync"
)

func runX() {
	initLogger(true /* verbose */)

	log := zaplog.Logger()

	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, 8), 25)
	for _, d := range []int64{0, 30, -40, 35, 50, 45, -5, 60, 0, 10} {
		corr := f.Do(d)
		log.Debug("tick",
			zap.Int64("deviation", d),
			zap.Int("misses", f.Misses()),
			zap.Int64("out_of_sync_sum", f.OutOfSyncSum()),
			zap.Int64("total_sum", f.TotalSum()),
			zap.Int64("correction", corr),
		)
	}
}
