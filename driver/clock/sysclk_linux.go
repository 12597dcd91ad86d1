//go:build linux

package clock

import (
	"math"
	"time"

	"go.uber.org/zap"

	"golang.org/x/sys/unix"

	"example.com/driftwatch/base/timebase"
)

type SystemClock struct {
	Log *zap.Logger
}

var _ timebase.LocalClock = (*SystemClock)(nil)

func (c *SystemClock) Now() time.Time {
	var ts unix.Timespec
	err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts)
	if err != nil {
		c.Log.Fatal("unix.ClockGettime failed", zap.Error(err))
	}
	return time.Unix(ts.Unix()).UTC()
}

func (c *SystemClock) Sleep(duration time.Duration) {
	c.Log.Debug("SystemClock.Sleep", zap.Duration("duration", duration))
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK)
	if err != nil {
		c.Log.Fatal("unix.TimerfdCreate failed", zap.Error(err))
	}
	if fd < math.MinInt32 || math.MaxInt32 < fd {
		c.Log.Fatal("unix.TimerfdCreate returned unexpected value")
	}
	ts := unix.NsecToTimespec(duration.Nanoseconds())
	err = unix.TimerfdSettime(fd, 0 /* relative */, &unix.ItimerSpec{Value: ts}, nil /* oldValue */)
	if err != nil {
		c.Log.Fatal("unix.TimerfdSettime failed", zap.Error(err))
	}
	pollFds := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
	}
	for {
		_, err := unix.Poll(pollFds, -1 /* timeout */)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			c.Log.Fatal("unix.Poll failed", zap.Error(err))
		}
		break
	}
	_ = unix.Close(fd)
}
