package main

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/horgh/irc"
)

// Listener accepts connections and owns the periodic dead-client sweep.
// It generalizes catbox's original single select-loop goroutine
// (ircd.go's start/acceptConnections/alarm) into one goroutine per
// connection plus a ticker goroutine, all coordinating through the
// Directory's mutex rather than a central event channel — see
// directory.go and spec.md §5.
type Listener struct {
	d  *Directory
	ln net.Listener
}

// Listen opens the configured listening socket (optionally TLS, or an
// inherited file descriptor for socket-activated restarts) and returns a
// Listener ready to Serve.
func Listen(d *Directory, listenFD int) (*Listener, error) {
	ln, err := openListener(d, listenFD)
	if err != nil {
		return nil, err
	}
	return &Listener{d: d, ln: ln}, nil
}

func openListener(d *Directory, listenFD int) (net.Listener, error) {
	if listenFD >= 0 {
		f := os.NewFile(uintptr(listenFD), "listener")
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("unable to use inherited listen fd %d: %s", listenFD, err)
		}
		return ln, nil
	}

	addr := net.JoinHostPort(d.Config.ListenHost, d.Config.ListenPort)

	if d.Config.TLSCert == "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("unable to listen: %s", err)
		}
		return ln, nil
	}

	cert, err := tls.LoadX509KeyPair(d.Config.TLSCert, d.Config.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("unable to load TLS certificate: %s", err)
	}
	ln, err := tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		return nil, fmt.Errorf("unable to listen (TLS): %s", err)
	}
	return ln, nil
}

// Serve accepts connections forever, spawning a reader and writer
// goroutine per client, and runs the dead-client sweep on its own ticker.
// It returns only if the listening socket itself fails.
func (l *Listener) Serve() error {
	go l.sweepLoop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return fmt.Errorf("accept failed: %s", err)
		}
		go l.handleConnection(conn)
	}
}

func (l *Listener) handleConnection(netConn net.Conn) {
	conn := NewConn(netConn)
	key := MembershipKey(conn.RemoteAddr().String())
	client := NewClient(netConn.RemoteAddr().String())

	l.d.Lock()
	l.d.addClient(key, client)
	l.d.Unlock()

	go l.writeLoop(conn, client)
	l.readLoop(conn, key, client)

	// readLoop returns once the client's queue is closed (on a read error,
	// or because a QUIT was dispatched). Per spec.md §5, it's the writer's
	// job to drain any remaining backlog and close the socket, not the
	// reader's — see writeLoop.
}

func (l *Listener) readLoop(conn Conn, key MembershipKey, client *Client) {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			l.d.Lock()
			l.d.removeClient(key)
			l.d.Unlock()
			client.Queue().Close()
			return
		}

		msg, err := irc.ParseMessage(line)
		if err != nil {
			// Malformed line: ignored, matching catbox's readLoop.
			continue
		}

		Dispatch(l.d, key, msg)

		l.d.Lock()
		quit := client.State() == Quit
		l.d.Unlock()
		if quit {
			return
		}
	}
}

// writeLoop drains a client's outbound queue onto its connection until
// the queue is closed (client quit or died), then closes the socket —
// the drain-then-close cancellation rule from spec.md §5.
func (l *Listener) writeLoop(conn Conn, client *Client) {
	queue := client.Queue()
	for {
		msgs, ok := queue.Receive()
		for _, m := range msgs {
			if err := conn.WriteMessage(m); err != nil {
				_ = conn.Close()
				return
			}
		}
		if !ok {
			_ = conn.Close()
			return
		}
	}
}

// sweepLoop periodically pings idle registered clients and disconnects
// ones that have been idle too long, per spec.md's PingTime/DeadTime
// config. Mirrors catbox's alarm + checkAndPingClients, adapted from a
// channel-synchronized wakeup to a plain ticker since there's no single
// owning goroutine here to hand control back to.
func (l *Listener) sweepLoop() {
	wakeup := l.d.Config.WakeupTime
	if wakeup <= 0 {
		wakeup = time.Minute
	}
	ticker := time.NewTicker(wakeup)
	defer ticker.Stop()

	for range ticker.C {
		l.sweep()
	}
}

func (l *Listener) sweep() {
	l.d.Lock()
	defer l.d.Unlock()

	for key, c := range l.d.clients {
		idle := c.IdleTime()

		if idle > l.d.Config.DeadTime {
			c.Send(irc.Message{Command: "ERROR", Params: []string{"Closing Link: idle too long"}})
			l.d.removeClient(key)
			c.Queue().Close()
			continue
		}

		if c.IsRegistered() && idle > l.d.Config.PingTime {
			c.Send(irc.Message{
				Prefix:  l.d.Config.ServerName,
				Command: "PING",
				Params:  []string{l.d.Config.ServerName},
			})
		}
	}
}
