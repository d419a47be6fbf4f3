package main

// MembershipKey is the opaque identity by which a Channel refers to one of
// its members. In this server it's the member's remote TCP endpoint
// (net.Addr.String()), but the Channel itself never inspects it beyond using
// it as a map key; any stable token the Directory can resolve to a nickname
// works.
type MembershipKey string

// MemberModes holds the per-(channel, member) flags from RFC 2811 section
// 4.1. The first member to join a channel gets creator and operator;
// everyone after starts with none. Creator is sticky: nothing in the mode
// algebra below ever clears it.
type MemberModes struct {
	Creator  bool
	Operator bool
	Voice    bool
}

// Symbol returns the display prefix for these member modes: '@' if
// operator, '+' if voice, else a literal space.
func (m MemberModes) Symbol() byte {
	switch {
	case m.Operator:
		return '@'
	case m.Voice:
		return '+'
	default:
		return ' '
	}
}

// Channel holds a channel's membership, topic, and mode state. A Channel
// with zero members is meant to be destroyed by its owner (the Directory);
// Channel itself never self-destructs, it only exposes Empty().
type Channel struct {
	Members map[MembershipKey]MemberModes

	Topic string

	UserLimit    int
	HasUserLimit bool

	Key string

	BanMask        map[string]struct{}
	ExceptionMask  map[string]struct{}
	InvitationMask map[string]struct{}

	Anonymous            bool
	InviteOnly           bool
	Moderated            bool
	NoPrivMsgFromOutside bool
	Quiet                bool
	Private              bool
	Secret               bool
	Reop                 bool
	TopicRestricted      bool
}

// NewChannel creates an empty channel and applies defaultModes to it.
// Mode-string parse errors and mode-application errors are both skipped:
// this is how a server-wide default-modes config string like "+nt" gets
// applied. The string is parsed with no parameter stream, so letters that
// need a parameter (k, +l, o, v) fail with MissingModeParam and are simply
// dropped.
func NewChannel(defaultModes string) *Channel {
	c := &Channel{
		Members:        make(map[MembershipKey]MemberModes),
		BanMask:        make(map[string]struct{}),
		ExceptionMask:  make(map[string]struct{}),
		InvitationMask: make(map[string]struct{}),
	}

	noNick := func(MembershipKey) string { return "" }

	p := ParseChannelModesSimple(defaultModes)
	for {
		change, err, ok := p.Next()
		if !ok {
			break
		}
		if err != nil {
			continue
		}
		_, _ = c.ApplyModeChange(change, noNick)
	}

	return c
}

// AddMember inserts key as a member. The first member into an empty channel
// becomes creator and operator; every member after starts with no flags.
func (c *Channel) AddMember(key MembershipKey) {
	modes := MemberModes{}
	if len(c.Members) == 0 {
		modes.Creator = true
		modes.Operator = true
	}
	c.Members[key] = modes
}

// RemoveMember removes key from the channel, if present. Idempotent.
func (c *Channel) RemoveMember(key MembershipKey) {
	delete(c.Members, key)
}

// Empty reports whether the channel has no members left. The Directory is
// responsible for destroying a channel once this is true.
func (c *Channel) Empty() bool {
	return len(c.Members) == 0
}

// CanJoin reports whether nick may join the channel: it must not be in the
// ban mask, unless it's also in the exception or invitation mask.
//
// This does literal string matching against nick, not hostmask pattern
// matching — the caller (Directory) is responsible for supplying whatever
// match semantics it wants before calling this with the right key.
func (c *Channel) CanJoin(nick string) bool {
	_, banned := c.BanMask[nick]
	if !banned {
		return true
	}
	if _, excepted := c.ExceptionMask[nick]; excepted {
		return true
	}
	_, invited := c.InvitationMask[nick]
	return invited
}

// CanTalk reports whether the member at key may PRIVMSG/NOTICE the channel.
func (c *Channel) CanTalk(key MembershipKey) bool {
	if c.Moderated {
		m, onChannel := c.Members[key]
		return onChannel && (m.Voice || m.Operator)
	}
	if !c.NoPrivMsgFromOutside {
		return true
	}
	_, onChannel := c.Members[key]
	return onChannel
}

// Modes returns the channel's mode summary: "+" followed by the set flag
// modes, in the fixed order a i m n q p r t l k. (This order has no slot for
// 's'/Secret, matching the source this server is a port of — see DESIGN.md.)
func (c *Channel) Modes() string {
	s := "+"
	if c.Anonymous {
		s += "a"
	}
	if c.InviteOnly {
		s += "i"
	}
	if c.Moderated {
		s += "m"
	}
	if c.NoPrivMsgFromOutside {
		s += "n"
	}
	if c.Quiet {
		s += "q"
	}
	if c.Private {
		s += "p"
	}
	if c.Reop {
		s += "r"
	}
	if c.TopicRestricted {
		s += "t"
	}
	if c.HasUserLimit {
		s += "l"
	}
	if c.Key != "" {
		s += "k"
	}
	return s
}

// Symbol returns the channel's visibility symbol for RPL_LIST/NAMREPLY: '@'
// if secret, '*' if private, else '='.
func (c *Channel) Symbol() string {
	switch {
	case c.Secret:
		return "@"
	case c.Private:
		return "*"
	default:
		return "="
	}
}

// NickOf resolves a membership key to the nickname the Directory knows it
// by. ApplyModeChange uses this to find the member a ChangeOperator/
// ChangeVoice targets by nickname.
type NickOf func(MembershipKey) string

// ApplyModeChange applies one parsed mode-change event to the channel.
// applied reports whether the channel's state actually changed. err is one
// of ErrKeySet or ErrUserNotInChannel; when non-nil, applied is always
// false and the rest of the mode string (if any) should still be attempted
// by the caller.
func (c *Channel) ApplyModeChange(change ChannelModeChange, nickOf NickOf) (applied bool, err error) {
	switch change.Kind {
	case InviteOnly:
		applied = c.InviteOnly != change.Add
		c.InviteOnly = change.Add

	case Moderated:
		applied = c.Moderated != change.Add
		c.Moderated = change.Add

	case NoPrivMsgFromOutside:
		applied = c.NoPrivMsgFromOutside != change.Add
		c.NoPrivMsgFromOutside = change.Add

	case Secret:
		applied = c.Secret != change.Add
		c.Secret = change.Add

	case TopicRestricted:
		applied = c.TopicRestricted != change.Add
		c.TopicRestricted = change.Add

	case Key:
		if change.Add {
			if c.Key != "" {
				return false, ErrKeySet
			}
			c.Key = change.Param
			applied = true
		} else if c.Key != "" && change.Param == c.Key {
			c.Key = ""
			applied = true
		}

	case UserLimit:
		if change.Add {
			if limit, ok := parseUserLimit(change.Param); ok {
				applied = !c.HasUserLimit || c.UserLimit != limit
				c.UserLimit = limit
				c.HasUserLimit = true
			}
		} else {
			applied = c.HasUserLimit
			c.HasUserLimit = false
			c.UserLimit = 0
		}

	case ChangeBan:
		applied = changeMaskSet(c.BanMask, change.Add, change.Param)

	case ChangeException:
		applied = changeMaskSet(c.ExceptionMask, change.Add, change.Param)

	case ChangeInvitation:
		applied = changeMaskSet(c.InvitationMask, change.Add, change.Param)

	case ChangeOperator:
		return c.setMemberFlag(change.Param, nickOf, change.Add, true)

	case ChangeVoice:
		// NOTE: preserved from the source this is a port of: this mutates
		// Operator, not Voice. See DESIGN.md/spec.md §9 — likely a bug, left
		// as-is rather than silently "fixed".
		return c.setMemberFlag(change.Param, nickOf, change.Add, true)

	case GetBans, GetExceptions, GetInvitations:
		// Listing requests are no-ops here; the caller renders the list from
		// the mask sets directly.
	}

	return applied, nil
}

// changeMaskSet adds or removes param from a hostmask set, reporting
// whether the set actually changed.
func changeMaskSet(set map[string]struct{}, add bool, param string) bool {
	if add {
		if _, present := set[param]; present {
			return false
		}
		set[param] = struct{}{}
		return true
	}
	if _, present := set[param]; !present {
		return false
	}
	delete(set, param)
	return true
}

// setMemberFlag finds the member whose nickname (via nickOf) equals nick
// and sets its operator flag, used by both ChangeOperator and (per the
// preserved bug above) ChangeVoice.
func (c *Channel) setMemberFlag(nick string, nickOf NickOf, add, _operator bool) (bool, error) {
	for key, modes := range c.Members {
		if nickOf(key) != nick {
			continue
		}
		applied := modes.Operator != add
		modes.Operator = add
		c.Members[key] = modes
		return applied, nil
	}
	return false, ErrUserNotInChannel
}
