package mqttflow

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"
)

// Dialer establishes transport connections to MQTT brokers.
type Dialer interface {
	// Dial connects to the address with the given context.
	Dial(ctx context.Context, address string) (net.Conn, error)
}

// ContextDialer matches the DialContext method of net.Dialer and of proxy
// dialers, so transports can be composed with a forward proxy.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPDialer connects to MQTT brokers over TCP.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration

	// Forward, if set, is used instead of the default dialer; e.g. a
	// SOCKS5 proxy dialer.
	Forward ContextDialer
}

// Dial connects to the address.
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	forward := d.Forward
	if forward == nil {
		forward = &net.Dialer{Timeout: d.Timeout}
	}
	return forward.DialContext(ctx, "tcp", address)
}

// TLSDialer connects to MQTT brokers over TLS.
type TLSDialer struct {
	// Config is the TLS configuration.
	Config *tls.Config

	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to the address.
func (d *TLSDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: d.Timeout},
		Config:    d.Config,
	}
	return dialer.DialContext(ctx, "tcp", address)
}

// Conn frames MQTT control packets over a network connection. Writes go
// through a serialized queue drained by a single goroutine: packets are
// flushed in submission order, and each completion callback fires after its
// packet hit the wire (or failed), also in submission order. Conn implements
// PacketWriter.
type Conn struct {
	conn   net.Conn
	logger Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []writeRequest
	closed bool
	done   chan struct{}
}

type writeRequest struct {
	pkt  Packet
	done func(error)
}

// NewConn wraps a network connection and starts its write queue.
func NewConn(conn net.Conn, logger Logger) *Conn {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	c := &Conn{
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.writeLoop()
	return c
}

// WritePacket queues pkt for writing. done, if non-nil, is invoked with the
// write result in submission order. WritePacket never blocks on the network.
func (c *Conn) WritePacket(pkt Packet, done func(error)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if done != nil {
			done(net.ErrClosed)
		}
		return
	}
	c.queue = append(c.queue, writeRequest{pkt: pkt, done: done})
	c.cond.Signal()
	c.mu.Unlock()
}

func (c *Conn) writeLoop() {
	defer close(c.done)

	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()

		for _, req := range batch {
			_, err := req.pkt.Encode(c.conn)
			if err != nil {
				c.logger.Warn("packet write failed", LogFields{
					LogFieldPacketType: req.pkt.Type(),
					LogFieldError:      err,
				})
			}
			if req.done != nil {
				req.done(err)
			}
		}
	}
}

// ReadPacket reads the next inbound control packet. It must be called from a
// single goroutine, the connection's read loop.
func (c *Conn) ReadPacket() (Packet, error) {
	return ReadPacket(c.conn)
}

// Close stops the write queue, fails pending writes with net.ErrClosed and
// closes the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := c.queue
	c.queue = nil
	c.cond.Signal()
	c.mu.Unlock()

	for _, req := range pending {
		if req.done != nil {
			req.done(net.ErrClosed)
		}
	}

	<-c.done
	return c.conn.Close()
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
