package tcp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cybroslabs/libserialio-go/base"
	"go.uber.org/zap"
)

const rxBufferSize = 2048

// Conn is a base.Stream to a serial access server. Received bytes are kept
// in a small buffer so that single byte polls rarely touch the socket.
type Conn struct {
	address string
	timeout time.Duration
	logger  *zap.SugaredLogger

	conn     net.Conn
	deadline time.Time

	rx     []byte
	offset int
	filled int

	totalincoming int64
	totaloutgoing int64
}

// New validates a host:port address. Nothing is dialed until Open.
func New(address string, timeout time.Duration) (*Conn, error) {
	_, p, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port in address %q", address)
	}
	return &Conn{
		address: address,
		timeout: timeout,
		rx:      make([]byte, rxBufferSize),
	}, nil
}

func (t *Conn) logf(format string, v ...any) {
	if t.logger != nil {
		t.logger.Infof(format, v...)
	}
}

func (t *Conn) logd(format string, v ...any) {
	if t.logger != nil {
		t.logger.Debugf(format, v...)
	}
}

func (t *Conn) Close() error {
	return nil // the connection is dropped by Disconnect only
}

func (t *Conn) Open() error {
	if t.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("tcp", t.address, t.timeout)
	if err != nil {
		t.logf("Connect to %s failed: %v", t.address, err)
		return fmt.Errorf("connect failed: %w", err)
	}
	t.logf("Connected to %s", t.address)

	t.conn = conn
	t.offset, t.filled = 0, 0
	return nil
}

func (t *Conn) Disconnect() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.logf("Disconnected from %s, bytes in: %d, out: %d", t.address, t.totalincoming, t.totaloutgoing)
	return err
}

func (t *Conn) IsOpen() bool {
	return t.conn != nil
}

func (t *Conn) SetDeadline(d time.Time) {
	t.deadline = d
}

func (t *Conn) SetLogger(logger *zap.SugaredLogger) {
	t.logger = logger
}

func (t *Conn) GetRxTxBytes() (int64, int64) {
	return t.totalincoming, t.totaloutgoing
}

// Buffered returns the count of received bytes not yet handed out.
func (t *Conn) Buffered() int {
	return t.filled - t.offset
}

// commDeadline is the earlier of the per-operation timeout and the caller's
// deadline, zero when neither is set.
func (t *Conn) commDeadline() time.Time {
	var cd time.Time
	if t.timeout > 0 {
		cd = time.Now().Add(t.timeout)
	}
	if !t.deadline.IsZero() && (cd.IsZero() || t.deadline.Before(cd)) {
		cd = t.deadline
	}
	return cd
}

func (t *Conn) Write(src []byte) error {
	if t.conn == nil {
		return base.ErrNotOpened
	}

	for len(src) > 0 {
		_ = t.conn.SetWriteDeadline(t.commDeadline())
		n, err := t.conn.Write(src)
		t.totaloutgoing += int64(n)
		if n > 0 {
			t.logd("TX (%s): %6d %s", t.address, n, encodeHexString(src[:n]))
		}
		if err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		src = src[n:]
	}
	return nil
}

// fill reads whatever the socket has into the empty receive buffer.
func (t *Conn) fill() error {
	_ = t.conn.SetReadDeadline(t.commDeadline())
	n, err := t.conn.Read(t.rx)
	t.offset, t.filled = 0, n
	t.totalincoming += int64(n)
	if n > 0 {
		t.logd("RX (%s): %6d %s", t.address, n, encodeHexString(t.rx[:n]))
		return nil
	}

	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return base.ErrCommunicationTimeout
	case err != nil:
		return err
	}
	return io.EOF
}

func (t *Conn) Read(p []byte) (int, error) {
	if t.conn == nil {
		return 0, base.ErrNotOpened
	}
	if len(p) == 0 {
		return 0, base.ErrNothingToRead
	}

	if t.Buffered() == 0 {
		if err := t.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, t.rx[t.offset:t.filled])
	t.offset += n
	return n, nil
}

func encodeHexString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
