package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/horgh/irc"
)

// ioWait bounds how long a single read or write may take before we give
// up on a connection. Generous relative to PingTime/DeadTime: those
// decide when we consider a quiet client dead, this decides when a
// single syscall is considered hung.
const ioWait = time.Minute

// Conn is a line-oriented connection to a client, TCP or TLS. It mirrors
// catbox's own net.go Conn: buffered read/write with a deadline set
// before each operation, plus an IRC-message-aware write helper.
type Conn struct {
	conn net.Conn
	rw   *bufio.ReadWriter
}

// NewConn wraps an already-accepted net.Conn (plain TCP or post-handshake
// TLS — both satisfy net.Conn identically).
func NewConn(conn net.Conn) Conn {
	return Conn{
		conn: conn,
		rw:   bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
	}
}

// RemoteAddr returns the connection's remote endpoint, used as the
// Directory's MembershipKey for this client.
func (c Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (c Conn) Close() error {
	return c.conn.Close()
}

// ReadLine reads one line, stripping its trailing CRLF/LF.
func (c Conn) ReadLine() (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(ioWait)); err != nil {
		return "", fmt.Errorf("unable to set read deadline: %s", err)
	}

	line, err := c.rw.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// WriteMessage encodes and writes one IRC message, flushing immediately.
func (c Conn) WriteMessage(m irc.Message) error {
	buf, err := m.Encode()
	if err != nil {
		return fmt.Errorf("unable to encode message: %s", err)
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(ioWait)); err != nil {
		return fmt.Errorf("unable to set write deadline: %s", err)
	}

	n, err := c.rw.WriteString(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write")
	}

	return c.rw.Flush()
}
