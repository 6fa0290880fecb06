// Package hostlink is the line protocol a host engine uses to feed gameplay
// events into the core and receive rendered player notices back.
package hostlink

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"
)

// MaxLineLength bounds one request line; bytes past it are discarded.
const MaxLineLength = 1024

// Conn is one host session's connection. ReadLine is called only by the
// session goroutine; WriteLine is serialized because the Router writes
// notices and health bars from game goroutines.
type Conn struct {
	nc  net.Conn
	in  *bufio.Reader
	buf []byte
	// afterCR is set when the last line ended in CR, so a following LF
	// belongs to that line ending.
	afterCR bool

	wmu          sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps nc. A zero timeout disables that deadline.
func NewConn(nc net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		nc:           nc,
		in:           bufio.NewReader(nc),
		buf:          make([]byte, 0, 128),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadLine returns the next line. A line ends at LF, CR or CRLF. Control
// bytes other than tab are dropped.
//
// Postcondition: on error the partial line read so far is returned with it.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	c.buf = c.buf[:0]
	for {
		b, err := c.in.ReadByte()
		if err != nil {
			return string(c.buf), err
		}
		wasCR := c.afterCR
		c.afterCR = false
		switch {
		case b == '\n' && wasCR:
		case b == '\n':
			return string(c.buf), nil
		case b == '\r':
			c.afterCR = true
			return string(c.buf), nil
		case b < ' ' && b != '\t':
		case len(c.buf) < MaxLineLength:
			c.buf = append(c.buf, b)
		}
	}
}

// WriteLine sends text terminated by CRLF.
//
// Precondition: text contains no line breaks.
func (c *Conn) WriteLine(text string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := io.WriteString(c.nc, text+"\r\n")
	return err
}

// Close closes the connection, unblocking a pending ReadLine.
func (c *Conn) Close() error { return c.nc.Close() }

// RemoteAddr returns the host's address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }
