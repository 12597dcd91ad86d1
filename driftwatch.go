// driftwatch synchronization monitor

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/driftwatch/base/zaplog"

	"example.com/driftwatch/benchmark"

	"example.com/driftwatch/core/sync"
	"example.com/driftwatch/core/timebase"

	"example.com/driftwatch/driver/clock"
	"example.com/driftwatch/driver/feed"
)

const (
	defaultMetricsAddr  = "127.0.0.1:8080"
	defaultTickInterval = 1 * time.Second
)

type svcConfig struct {
	MetricsAddr string          `toml:"metrics_address,omitempty"`
	Channels    []channelConfig `toml:"channels,omitempty"`
}

type channelConfig struct {
	Name             string `toml:"name,omitempty"`
	FeedAddr         string `toml:"feed_address,omitempty"`
	HistorySize      int    `toml:"history_size,omitempty"`
	AllowedDeviation int64  `toml:"allowed_deviation,omitempty"`
	MaxCorrection    int64  `toml:"max_correction,omitempty"`
	TickInterval     string `toml:"tick_interval,omitempty"`
}

var (
	log *zap.Logger
)

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		// See https://github.com/scionproto/scion/blob/master/pkg/log/log.go
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
	zaplog.SetLogger(log)
}

func runMonitor(log *zap.Logger, metricsAddr string) {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(metricsAddr, nil)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

func loadConfig(configFile string) svcConfig {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	var cfg svcConfig
	err = toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		log.Fatal("failed to decode configuration", zap.Error(err))
	}
	return cfg
}

func channelSyncConfig(cc channelConfig) sync.ChannelConfig {
	if cc.Name == "" {
		log.Fatal("channel name not specified in config")
	}
	c := sync.ChannelConfig{
		Name:             cc.Name,
		HistorySize:      cc.HistorySize,
		AllowedDeviation: cc.AllowedDeviation,
		MaxCorrection:    cc.MaxCorrection,
		TickInterval:     defaultTickInterval,
	}
	if c.HistorySize == 0 {
		c.HistorySize = sync.DefaultHistorySize
	}
	if c.AllowedDeviation == 0 {
		c.AllowedDeviation = sync.DefaultAllowedDeviation
	}
	if cc.TickInterval != "" {
		d, err := time.ParseDuration(cc.TickInterval)
		if err != nil {
			log.Fatal("failed to parse tick interval",
				zap.String("channel", cc.Name), zap.Error(err))
		}
		c.TickInterval = d
	}
	return c
}

func runMonitorService(configFile string) {
	ctx := context.Background()

	cfg := loadConfig(configFile)
	if len(cfg.Channels) == 0 {
		log.Fatal("no channels specified in config")
	}

	lclk := &clock.SystemClock{Log: log}
	timebase.RegisterClock(lclk)

	for _, cc := range cfg.Channels {
		c := channelSyncConfig(cc)
		if cc.FeedAddr == "" {
			log.Fatal("feed_address not specified in config",
				zap.String("channel", cc.Name))
		}
		src, err := feed.StartUDPFeed(ctx, log, cc.Name, cc.FeedAddr)
		if err != nil {
			log.Fatal("failed to start deviation feed",
				zap.String("channel", cc.Name), zap.Error(err))
		}
		log.Info("watching channel",
			zap.String("channel", cc.Name),
			zap.Stringer("feed", src.LocalAddr()),
			zap.Int("history_size", c.HistorySize),
			zap.Int64("allowed_deviation", c.AllowedDeviation),
			zap.Duration("tick_interval", c.TickInterval),
		)
		go sync.RunChannelSync(log, lclk, c, src)
	}

	metricsAddr := cfg.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = defaultMetricsAddr
	}
	runMonitor(log, metricsAddr)
}

func runTool(historySize int, allowedDeviation int64, deviationsStr string) {
	f := new(sync.MajorityFilter)
	f.Reset(make([]int64, historySize), allowedDeviation)
	for _, s := range strings.Split(deviationsStr, ",") {
		d, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			log.Fatal("failed to parse deviation", zap.String("value", s), zap.Error(err))
		}
		corr := f.Do(d)
		fmt.Printf("deviation = %d\tmisses = %d\tcorrection = %d\n",
			d, f.Misses(), corr)
	}
}

func exitWithUsage() {
	fmt.Println("<usage>")
	os.Exit(1)
}

func main() {
	var (
		verbose          bool
		configFile       string
		historySize      int
		allowedDeviation int64
		deviations       string
	)

	monitorFlags := flag.NewFlagSet("monitor", flag.ExitOnError)
	toolFlags := flag.NewFlagSet("tool", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	monitorFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	monitorFlags.StringVar(&configFile, "config", "", "Config file")

	toolFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	toolFlags.IntVar(&historySize, "window", sync.DefaultHistorySize, "History size")
	toolFlags.Int64Var(&allowedDeviation, "allowed", sync.DefaultAllowedDeviation, "Allowed deviation")
	toolFlags.StringVar(&deviations, "deviations", "", "Comma-separated deviation samples")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.IntVar(&historySize, "window", sync.DefaultHistorySize, "History size")
	benchmarkFlags.Int64Var(&allowedDeviation, "allowed", sync.DefaultAllowedDeviation, "Allowed deviation")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case monitorFlags.Name():
		err := monitorFlags.Parse(os.Args[2:])
		if err != nil || monitorFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runMonitorService(configFile)
	case toolFlags.Name():
		err := toolFlags.Parse(os.Args[2:])
		if err != nil || toolFlags.NArg() != 0 {
			exitWithUsage()
		}
		if historySize <= 0 || allowedDeviation < 0 || deviations == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runTool(historySize, allowedDeviation, deviations)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if historySize <= 0 || allowedDeviation <= 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		benchmark.RunTickBenchmark(historySize, allowedDeviation)
	case "x":
		runX()
	default:
		exitWithUsage()
	}
}
