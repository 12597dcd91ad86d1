package sync

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.uber.org/zap"

	"example.com/driftwatch/base/intmath"
	"example.com/driftwatch/base/metrics"
	"example.com/driftwatch/base/timebase"
	"example.com/driftwatch/core/sources"
)

const minTickInterval = 5 * time.Millisecond

var (
	corrGauges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: metrics.SyncChannelCorrN,
		Help: metrics.SyncChannelCorrH,
	}, []string{"channel"})
	missGauges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: metrics.SyncChannelMissesN,
		Help: metrics.SyncChannelMissesH,
	}, []string{"channel"})
	tickCounters = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.SyncChannelTicksN,
		Help: metrics.SyncChannelTicksH,
	}, []string{"channel"})
)

// ChannelConfig describes one synchronization channel.
type ChannelConfig struct {
	Name             string
	HistorySize      int
	AllowedDeviation int64
	// MaxCorrection caps the magnitude of the suggested correction
	// reported per tick. Zero means no cap.
	MaxCorrection int64
	TickInterval  time.Duration
}

// RunChannelSync drives one synchronization channel: once per tick it
// samples the deviation source, feeds the majority filter, and reports
// the suggested correction via the log and the channel gauges. The
// correction is advisory only; nothing is applied to any clock here.
func RunChannelSync(log *zap.Logger, lclk timebase.LocalClock,
	cfg ChannelConfig, src sources.Source) {
	if cfg.HistorySize <= 0 {
		panic("invalid history size")
	}
	if cfg.AllowedDeviation < 0 {
		panic("invalid allowed deviation")
	}
	if cfg.MaxCorrection < 0 {
		panic("invalid max correction")
	}
	if cfg.TickInterval < minTickInterval {
		panic("invalid tick interval")
	}

	f := new(MajorityFilter)
	f.Reset(make([]int64, cfg.HistorySize), cfg.AllowedDeviation)

	corrGauge := corrGauges.WithLabelValues(cfg.Name)
	missGauge := missGauges.WithLabelValues(cfg.Name)
	ticks := tickCounters.WithLabelValues(cfg.Name)

	ctx := context.Background()
	for {
		s, err := src.SampleDeviation(ctx)
		if err != nil {
			log.Error("failed to sample deviation",
				zap.String("channel", cfg.Name), zap.Error(err))
			lclk.Sleep(cfg.TickInterval)
			continue
		}

		corr := f.Do(s.Deviation)
		if cfg.MaxCorrection != 0 && intmath.Abs(corr) > cfg.MaxCorrection {
			corr = intmath.Sgn(corr) * cfg.MaxCorrection
		}

		ticks.Inc()
		missGauge.Set(float64(f.Misses()))
		corrGauge.Set(float64(corr))

		if corr != 0 {
			log.Info("channel out of sync",
				zap.String("channel", cfg.Name),
				zap.Int64("deviation", s.Deviation),
				zap.Int("misses", f.Misses()),
				zap.Int64("correction", corr),
			)
		} else {
			log.Debug("channel in sync",
				zap.String("channel", cfg.Name),
				zap.Int64("deviation", s.Deviation),
				zap.Int("misses", f.Misses()),
			)
		}

		lclk.Sleep(cfg.TickInterval)
	}
}
