package main

import (
	"time"

	"github.com/horgh/irc"
)

// Client holds one connected session's identity, capability negotiation
// state, connection state machine, and outbound queue.
//
// Mutation is performed only by the single logical owner of the session —
// the Directory, under its one mutex (see directory.go) — never
// independently by the client's own reader/writer goroutines.
type Client struct {
	queue *MessageQueue

	Capabilities Capabilities
	state        ConnState

	nick string
	user string
	real string
	host string

	// fullName is nick!user@host, recomputed on every nick/user change.
	fullName string

	signonTime     time.Time
	lastActionTime time.Time

	HasGivenPassword bool

	Away       bool
	Invisible  bool
	Registered bool
	Operator   bool
}

// NewClient initializes a freshly accepted connection's Client state.
// The nickname starts as "*"; user and real start empty. fullName starts
// as "*" + host with no '!'/'@' separators — those only appear once
// SetNick or SetUserReal rebuilds it (see updateFullName).
func NewClient(host string) *Client {
	now := time.Now()
	return &Client{
		queue:          NewMessageQueue(),
		nick:           "*",
		host:           host,
		fullName:       "*" + host,
		signonTime:     now,
		lastActionTime: now,
	}
}

// State returns the client's current connection state.
func (c *Client) State() ConnState {
	return c.state
}

// CanIssueCommand reports whether command/subCommand is legal right now,
// without changing state.
func (c *Client) CanIssueCommand(command, subCommand string) bool {
	return c.state.CanIssueCommand(command, subCommand)
}

// ApplyCommand commits the state transition for command/subCommand.
// Precondition: CanIssueCommand(command, subCommand) is true; callers that
// skip the check get the FSM's rejection error back with state unchanged.
func (c *Client) ApplyCommand(command, subCommand string) (ConnState, error) {
	next, err := c.state.Apply(command, subCommand)
	if err != nil {
		return c.state, err
	}
	c.state = next
	if c.state == Registered {
		c.Registered = true
	}
	return c.state, nil
}

// IsRegistered reports whether the client has completed registration.
func (c *Client) IsRegistered() bool {
	return c.state.IsRegistered()
}

// Nick returns the client's current nickname.
func (c *Client) Nick() string {
	return c.nick
}

// User returns the client's username, as given by USER.
func (c *Client) User() string {
	return c.user
}

// Real returns the client's realname, as given by USER.
func (c *Client) Real() string {
	return c.real
}

// Host returns the client's connection host.
func (c *Client) Host() string {
	return c.host
}

// FullName returns the cached nick!user@host display string.
func (c *Client) FullName() string {
	return c.fullName
}

// SetNick replaces the client's nickname and recomputes FullName. It does
// not touch connection state; the caller drives the FSM separately.
func (c *Client) SetNick(nick string) {
	c.nick = nick
	c.updateFullName()
}

// SetUserReal records the username and realname given by USER. Callers
// guarantee this runs at most once per client during registration.
func (c *Client) SetUserReal(user, real string) {
	c.user = user
	c.real = real
	c.updateFullName()
}

func (c *Client) updateFullName() {
	c.fullName = c.nick + "!" + c.user + "@" + c.host
}

// SignonTime returns when this client connected.
func (c *Client) SignonTime() time.Time {
	return c.signonTime
}

// IdleTime returns how long it's been since the client's last non-PING
// action.
func (c *Client) IdleTime() time.Duration {
	return time.Since(c.lastActionTime)
}

// UpdateIdleTime resets the idle clock to now. Callers invoke this on
// every non-PING inbound command.
func (c *Client) UpdateIdleTime() {
	c.lastActionTime = time.Now()
}

// WriteModes returns the client's user mode summary: "+" followed by any
// set flags, in order a i o.
func (c *Client) WriteModes() string {
	s := "+"
	if c.Away {
		s += "a"
	}
	if c.Invisible {
		s += "i"
	}
	if c.Operator {
		s += "o"
	}
	return s
}

// ApplyUserModeChange applies one parsed user mode-change event, returning
// whether it actually changed anything.
func (c *Client) ApplyUserModeChange(change UserModeChange) bool {
	switch change.Kind {
	case UserModeInvisible:
		applied := c.Invisible != change.Add
		c.Invisible = change.Add
		return applied
	default:
		return false
	}
}

// Send enqueues msg for delivery to the client. It never blocks and never
// fails observably — enqueueing onto a closed queue (client already quit)
// is silently dropped.
func (c *Client) Send(msg irc.Message) {
	c.queue.Send(msg)
}

// Queue exposes the client's outbound queue for the writer goroutine that
// drains it onto the socket (see conn.go).
func (c *Client) Queue() *MessageQueue {
	return c.queue
}
