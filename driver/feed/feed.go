package feed

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.uber.org/zap"

	"example.com/driftwatch/base/metrics"
	"example.com/driftwatch/core/sources"
	"example.com/driftwatch/core/timebase"
)

// Deviation samples arrive as single datagrams carrying one 8 byte
// big-endian two's-complement value.
const sampleLen = 8

var (
	pktsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.FeedPktsReceivedN,
		Help: metrics.FeedPktsReceivedH,
	}, []string{"feed"})
	pktsMalformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.FeedPktsMalformedN,
		Help: metrics.FeedPktsMalformedH,
	}, []string{"feed"})
)

// UDPFeed receives deviation samples via UDP and retains the most recent
// one. It implements sources.Source; SampleDeviation never blocks on the
// network. Before the first datagram arrives it reports a deviation of
// zero with a zero timestamp.
type UDPFeed struct {
	localAddr     net.Addr
	latest        atomic.Int64
	receivedAt    atomic.Int64
	pktsReceived  prometheus.Counter
	pktsMalformed prometheus.Counter
}

var _ sources.Source = (*UDPFeed)(nil)

// StartUDPFeed opens a UDP listener on localAddr and starts the receive
// loop in a new goroutine. The name labels the feed's metrics.
func StartUDPFeed(ctx context.Context, log *zap.Logger, name, localAddr string) (
	*UDPFeed, error) {
	conn, err := reuseport.ListenPacket("udp", localAddr)
	if err != nil {
		return nil, err
	}
	f := &UDPFeed{
		localAddr:     conn.LocalAddr(),
		pktsReceived:  pktsReceived.WithLabelValues(name),
		pktsMalformed: pktsMalformed.WithLabelValues(name),
	}
	go f.run(log, conn)
	return f, nil
}

func (f *UDPFeed) run(log *zap.Logger, conn net.PacketConn) {
	defer conn.Close()
	buf := make([]byte, 2048)
	for {
		n, srcAddr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error("failed to read packet", zap.Error(err))
			continue
		}
		f.pktsReceived.Inc()
		if n != sampleLen {
			f.pktsMalformed.Inc()
			log.Debug("failed to decode packet payload",
				zap.Stringer("from", srcAddr), zap.Int("len", n))
			continue
		}
		f.latest.Store(int64(binary.BigEndian.Uint64(buf[:sampleLen])))
		f.receivedAt.Store(timebase.Now().UnixNano())
	}
}

// LocalAddr returns the address the feed is listening on.
func (f *UDPFeed) LocalAddr() net.Addr {
	return f.localAddr
}

// SampleDeviation returns the most recently received deviation sample
// and the local time it was received at.
func (f *UDPFeed) SampleDeviation(ctx context.Context) (sources.Sample, error) {
	at := f.receivedAt.Load()
	s := sources.Sample{Deviation: f.latest.Load()}
	if at != 0 {
		s.Timestamp = time.Unix(0, at)
	}
	return s, nil
}
