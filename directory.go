package main

import (
	"strings"
	"sync"
)

// Directory is the server's single shared, mutex-serialized piece of
// state: every client by membership key, every registered nickname, and
// every channel by name. Per spec.md §5, Client and Channel are NOT
// independently locked — this mutex is the only serialization point in
// the server, held briefly by a connection's goroutine while it applies
// one inbound command's effect.
//
// This generalizes catbox's original Server (ircd.go): that version owns
// its maps from inside a single goroutine fed by channels (newClientChan,
// messageServerChan, deadClientChan); here, per spec.md's explicit
// wording, any number of per-connection goroutines may mutate state
// directly as long as they hold the Directory's lock first.
//
// Directory embeds sync.Mutex rather than hiding it behind per-call
// locking: a command handler in commands.go typically needs several of
// the unexported helpers below to run as one atomic unit (e.g. JOIN:
// look up or create the channel, check CanJoin, then add the member), so
// the lock span is the caller's to control —
//
//	d.Lock()
//	defer d.Unlock()
//	ch := d.getOrCreateChannel(name)
//	...
//
// Every unexported method on Directory assumes its caller already holds
// the lock; none of them take it themselves.
type Directory struct {
	sync.Mutex

	Config Config

	// clients indexes every connected session by its membership key
	// (typically its remote TCP endpoint string).
	clients map[MembershipKey]*Client

	// nicks indexes registered sessions by canonicalized nickname — the
	// authority Directory uses to reject NICK collisions and resolve
	// ChangeOperator/ChangeVoice's nick_of lookups.
	nicks map[string]MembershipKey

	// channels indexes channels by canonicalized name.
	channels map[string]*Channel
}

// NewDirectory creates an empty Directory. Config is populated separately
// by checkAndParseConfig.
func NewDirectory() *Directory {
	return &Directory{
		clients:  make(map[MembershipKey]*Client),
		nicks:    make(map[string]MembershipKey),
		channels: make(map[string]*Channel),
	}
}

// addClient registers a newly accepted connection under key.
func (d *Directory) addClient(key MembershipKey, c *Client) {
	d.clients[key] = c
}

// clientByKey resolves a membership key to its Client, or nil.
func (d *Directory) clientByKey(key MembershipKey) *Client {
	return d.clients[key]
}

// removeClient removes a client and any nick/channel membership it held.
// Channels left empty as a result are destroyed, per spec.md §3
// ("a channel with zero members should be destroyed by the directory").
func (d *Directory) removeClient(key MembershipKey) {
	c, ok := d.clients[key]
	if !ok {
		return
	}

	if nick := canonicalizeNick(c.Nick()); d.nicks[nick] == key {
		delete(d.nicks, nick)
	}

	for name, ch := range d.channels {
		ch.RemoveMember(key)
		if ch.Empty() {
			delete(d.channels, name)
		}
	}

	delete(d.clients, key)
}

// nickOf resolves a membership key to the nickname the Directory knows it
// by, or "" if the key isn't a current client. This is the nick_of
// callback Channel.ApplyModeChange needs for ChangeOperator/ChangeVoice.
func (d *Directory) nickOf(key MembershipKey) string {
	c, ok := d.clients[key]
	if !ok {
		return ""
	}
	return c.Nick()
}

// isNickInUse reports whether nick (canonicalized) already belongs to a
// different client than except.
func (d *Directory) isNickInUse(nick string, except MembershipKey) bool {
	owner, exists := d.nicks[canonicalizeNick(nick)]
	return exists && owner != except
}

// setNick records that key now owns nick, releasing any nick it
// previously held, and updates the Client's own nick/fullName.
func (d *Directory) setNick(key MembershipKey, nick string) {
	c, ok := d.clients[key]
	if !ok {
		return
	}

	if old := c.Nick(); old != "*" {
		if owner, exists := d.nicks[canonicalizeNick(old)]; exists && owner == key {
			delete(d.nicks, canonicalizeNick(old))
		}
	}

	c.SetNick(nick)
	d.nicks[canonicalizeNick(nick)] = key
}

// getOrCreateChannel returns the channel named name (canonicalized),
// creating it with the server's configured default modes if it doesn't
// exist yet.
func (d *Directory) getOrCreateChannel(name string) *Channel {
	canon := canonicalizeChannel(name)
	if ch, ok := d.channels[canon]; ok {
		return ch
	}
	ch := NewChannel(d.Config.DefaultChannelModes)
	d.channels[canon] = ch
	return ch
}

// getChannel returns the channel named name (canonicalized), or nil if it
// doesn't exist.
func (d *Directory) getChannel(name string) *Channel {
	return d.channels[canonicalizeChannel(name)]
}

// removeChannelIfEmpty deletes the named channel if it has no members
// left. Called after a PART that might have emptied it.
func (d *Directory) removeChannelIfEmpty(name string) {
	canon := canonicalizeChannel(name)
	if ch, ok := d.channels[canon]; ok && ch.Empty() {
		delete(d.channels, canon)
	}
}

// clientByNick resolves a nickname to its Client, or nil.
func (d *Directory) clientByNick(nick string) *Client {
	key, ok := d.nicks[canonicalizeNick(nick)]
	if !ok {
		return nil
	}
	return d.clients[key]
}

// channelNames returns the canonicalized names of every channel key is a
// member of, space-joined. No command handler calls it.
func (d *Directory) channelNames(key MembershipKey) string {
	var names []string
	for name, ch := range d.channels {
		if _, member := ch.Members[key]; member {
			names = append(names, name)
		}
	}
	return strings.Join(names, " ")
}
