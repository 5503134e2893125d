package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"msgboard/relay/internal/types"
)

// Appender persists one decoded record. Implementations report their own
// failures; the listener never sees them.
type Appender interface {
	Append(rec types.Record)
}

// Receive errors back off between these bounds until a read succeeds.
const (
	minRetryDelay = 5 * time.Millisecond
	maxRetryDelay = time.Second
)

// Listener owns one bound UDP socket and turns every datagram it receives
// into a stored record. Datagrams are handled one at a time, so Append is
// never called concurrently by a single Listener.
type Listener struct {
	conn       net.PacketConn
	bufferSize int
	store      Appender
	log        *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Listen binds addr. A bind error is returned as is: the listener cannot
// recover without a different address.
func Listen(addr string, bufferSize int, st Appender, log *slog.Logger) (*Listener, error) {
	if bufferSize <= 0 {
		return nil, fmt.Errorf("buffer size must be greater than 0, got %d", bufferSize)
	}
	if log == nil {
		log = slog.Default()
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	return &Listener{conn: conn, bufferSize: bufferSize, store: st, log: log}, nil
}

func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Close releases the socket. Safe to call more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() { l.closeErr = l.conn.Close() })
	return l.closeErr
}

// Run receives datagrams until ctx is cancelled or the listener is closed.
// Payload problems are logged and skipped; they never end the loop. The
// socket is closed on return.
func (l *Listener) Run(ctx context.Context) error {
	defer l.Close()
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	l.log.Info("ingest listener started", "addr", l.Addr().String(), "buffer_size", l.bufferSize)

	// One spare byte tells a datagram that exactly fills the buffer apart
	// from one the kernel had to cut.
	buf := make([]byte, l.bufferSize+1)
	var retryDelay time.Duration
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.log.Info("ingest listener stopped")
				return nil
			}
			if retryDelay == 0 {
				retryDelay = minRetryDelay
			} else {
				retryDelay = min(2*retryDelay, maxRetryDelay)
			}
			l.log.Error("receive datagram", "err", err, "retry_in", retryDelay)
			select {
			case <-ctx.Done():
				l.log.Info("ingest listener stopped")
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}
		retryDelay = 0
		l.handle(buf[:n], from)
	}
}

func (l *Listener) handle(payload []byte, from net.Addr) {
	start := time.Now()
	defer func() { metricProcessMS.Observe(float64(time.Since(start).Microseconds()) / 1000) }()

	metricDatagrams.Inc()
	if len(payload) > l.bufferSize {
		metricTruncated.Inc()
		l.log.Warn("datagram truncated", "from", addrString(from), "limit", l.bufferSize)
		payload = payload[:l.bufferSize]
	}
	metricBytes.Add(float64(len(payload)))
	l.log.Debug("datagram received", "from", addrString(from), "payload", string(payload))

	rec, err := Decode(payload)
	if err != nil {
		metricDecodeErrors.Inc()
		l.log.Error("decode form payload", "from", addrString(from), "err", err)
		return
	}
	l.store.Append(rec)
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
