package main

import (
	"strings"

	"github.com/horgh/irc"
)

// The three capabilities this server advertises, and the fixed CAP LS
// reply built from them.
const (
	capNotify    = "cap-notify"
	capEcho      = "echo-message"
	capMsgTags   = "message-tags"
	capLSTrailer = "cap-notify echo-message message-tags"
)

// Capabilities tracks which IRCv3 capabilities a client has negotiated.
type Capabilities struct {
	V302        bool
	CapNotify   bool
	EchoMessage bool
	MessageTags bool
}

// capToken is one word of a capability list: its name and whether it's
// being enabled (no leading sign, or '+') or disabled (leading '-').
type capToken struct {
	Name   string
	Enable bool
}

// capQuery walks a whitespace-separated capability list, yielding
// (name, enable) pairs. A leading '-' on a token means disable.
func capQuery(list string) []capToken {
	fields := strings.Fields(list)
	out := make([]capToken, 0, len(fields))
	for _, word := range fields {
		if strings.HasPrefix(word, "-") {
			out = append(out, capToken{Name: word[1:], Enable: false})
			continue
		}
		out = append(out, capToken{Name: word, Enable: true})
	}
	return out
}

// UpdateCapabilities applies a CAP REQ/ACK-style list to c: each recognized
// token sets its boolean; unknown tokens are silently ignored.
func (c *Capabilities) UpdateCapabilities(list string) {
	for _, tok := range capQuery(list) {
		switch tok.Name {
		case capNotify:
			c.CapNotify = tok.Enable
		case capEcho:
			c.EchoMessage = tok.Enable
		case capMsgTags:
			c.MessageTags = tok.Enable
		}
	}
}

// SetCapVersion records the CAP LS/REQ version. Version "302" also
// implicitly enables cap-notify, per IRCv3.2 capability-notify semantics.
func (c *Capabilities) SetCapVersion(version string) {
	if version == "302" {
		c.V302 = true
		c.CapNotify = true
	}
}

// AreSupported reports whether every token in list (ignoring a leading
// sign) names one of the three capabilities this server knows. Used to
// reject a CAP REQ naming something unsupported.
func AreSupported(list string) bool {
	for _, tok := range capQuery(list) {
		switch tok.Name {
		case capNotify, capEcho, capMsgTags:
		default:
			return false
		}
	}
	return true
}

// WriteEnabledCapabilities returns the trailing parameter for a
// "CAP <nick> LIST" reply: the space-separated list of currently enabled
// capability names, in fixed order, no trailing space.
func (c *Capabilities) WriteEnabledCapabilities() string {
	var names []string
	if c.CapNotify {
		names = append(names, capNotify)
	}
	if c.EchoMessage {
		names = append(names, capEcho)
	}
	if c.MessageTags {
		names = append(names, capMsgTags)
	}
	return strings.Join(names, " ")
}

// capListMessage builds the "CAP <nick> LIST" reply for the given client
// nick, ready to hand to Client.Send.
func capListMessage(nick string, c *Capabilities) irc.Message {
	return irc.Message{
		Command: "CAP",
		Params:  []string{nick, "LIST", c.WriteEnabledCapabilities()},
	}
}

// capLSMessage builds the fixed "CAP <nick> LS" reply advertising all
// three known capabilities.
func capLSMessage(nick string) irc.Message {
	return irc.Message{
		Command: "CAP",
		Params:  []string{nick, "LS", capLSTrailer},
	}
}
