package forward

import (
	"fmt"
	"net"
	"time"
)

// Forwarder hands raw form payloads to the ingest listener. Each Send is
// one datagram on a fresh socket; nothing is acknowledged or retried.
type Forwarder struct {
	addr    string
	timeout time.Duration
}

func New(addr string) *Forwarder {
	return &Forwarder{addr: addr, timeout: time.Second}
}

func (f *Forwarder) Addr() string { return f.addr }

// Send writes payload as a single datagram. A nil error only means the
// datagram left this process.
func (f *Forwarder) Send(payload []byte) error {
	conn, err := net.DialTimeout("udp", f.addr, f.timeout)
	if err != nil {
		metricDatagrams.WithLabelValues("error").Inc()
		return fmt.Errorf("dial %s: %w", f.addr, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(f.timeout))
	if _, err := conn.Write(payload); err != nil {
		metricDatagrams.WithLabelValues("error").Inc()
		return fmt.Errorf("send to %s: %w", f.addr, err)
	}
	metricDatagrams.WithLabelValues("ok").Inc()
	metricBytes.Add(float64(len(payload)))
	return nil
}
