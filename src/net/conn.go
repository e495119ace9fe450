package net

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
)

var (
	// ErrConnClosed is returned when writing to a Conn that was closed.
	ErrConnClosed = errors.New("connection closed")

	// ErrLineTooLong is returned by ReadLine when a line exceeds the
	// connection's limit. The rest of the line is left unread, so the
	// connection is no longer usable.
	ErrLineTooLong = errors.New("line too long")
)

// DefaultMaxLineSize is the longest line, terminator included, a Conn accepts
// unless told otherwise.
const DefaultMaxLineSize = 32 << 20

// Conn is a bidirectional connection to a peer carrying newline-terminated
// messages. Reads are meant for a single goroutine; writes may come from
// several and are serialized.
type Conn struct {
	conn    net.Conn
	r       *bufio.Reader
	maxLine int

	writeLock sync.Mutex
	w         *bufio.Writer

	closed    int32
	closeOnce sync.Once
}

// NewConn wraps a net.Conn. Lines longer than maxLine bytes, terminator
// included, are refused; zero means DefaultMaxLineSize.
func NewConn(conn net.Conn, maxLine int) *Conn {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	return &Conn{
		conn:    conn,
		r:       bufio.NewReader(conn),
		w:       bufio.NewWriter(conn),
		maxLine: maxLine,
	}
}

// ReadLine blocks until a full line is available and returns it without its
// terminator. A trailing partial line at end of stream is discarded.
func (c *Conn) ReadLine() (string, error) {
	var line []byte
	for {
		frag, err := c.r.ReadSlice('\n')
		if len(line)+len(frag) > c.maxLine {
			return "", ErrLineTooLong
		}
		line = append(line, frag...)

		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return "", err
		}
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// WriteLine sends one line and flushes it.
func (c *Conn) WriteLine(line string) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if c.IsClosed() {
		return ErrConnClosed
	}

	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether Close was called.
func (c *Conn) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// RemoteAddr returns the address of the other end.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// LocalAddr returns the address of this end.
func (c *Conn) LocalAddr() string {
	return c.conn.LocalAddr().String()
}

// IsClosedErr reports whether err means the peer went away or the connection
// was closed locally, as opposed to a genuine failure.
func IsClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrConnClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
