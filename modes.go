package main

import (
	"strconv"
	"strings"
)

// The full set of user modes a client may advertise. Only 'i' is settable
// through this path; the rest are reserved (see UserModeParser.Next).
const userModes = "aiorsw"

// Simple channel flag modes, and the CHANMODES value this server advertises.
// (beI,k,l,aimnpqst) matches RFC 2811's grouping: list modes that always take
// a parameter, modes that always take a parameter, modes that take a
// parameter only when set, then modes that never take one.
const (
	simpleChanModes   = "aimnpqst"
	extendedChanModes = "beIklov"
)

// chanModesISupport is the CHANMODES token of RPL_ISUPPORT (005): the four
// groups are list modes (always take a parameter, on both set and unset),
// modes that always take a parameter, modes that take one only when set,
// and modes that never take one.
const chanModesISupport = "CHANMODES=beI,k,l,aimnpqst"

// ModeErrorKind distinguishes why a single mode-string letter failed to
// produce a change.
type ModeErrorKind int

// Mode parsing/application error kinds.
const (
	UnknownMode ModeErrorKind = iota
	MissingModeParam
	UnsettableMode
)

// ModeError is the error type emitted per mode-string letter. Errors here
// are per-event: a caller walking a ModeParser is expected to skip a failing
// letter and keep consuming the rest of the string.
type ModeError struct {
	Kind ModeErrorKind
	Char byte
}

func (e *ModeError) Error() string {
	switch e.Kind {
	case MissingModeParam:
		return "missing parameter for mode " + string(e.Char)
	case UnsettableMode:
		return "mode " + string(e.Char) + " cannot be set"
	default:
		return "unknown mode " + string(e.Char)
	}
}

// signCursor walks a mode string byte by byte, tracking the current sign
// ('+' or '-') and yielding (sign, letter) pairs. It does not look at
// parameters; UserModeParser/ChannelModeParser layer that on top.
//
// This is a pull iterator: it does not materialize the mode string into a
// slice of events up front, since channel mode application needs to
// interleave with the caller's (Directory's) nickname lookups one event at a
// time.
type signCursor struct {
	modes string
	pos   int
	add   bool
}

func newSignCursor(modes string) signCursor {
	return signCursor{modes: modes, add: true}
}

// next returns the next (sign, letter) pair, or ok=false once the mode
// string is exhausted.
func (c *signCursor) next() (add bool, letter byte, ok bool) {
	for c.pos < len(c.modes) {
		ch := c.modes[c.pos]
		c.pos++
		switch ch {
		case '+':
			c.add = true
			continue
		case '-':
			c.add = false
			continue
		default:
			return c.add, ch, true
		}
	}
	return false, 0, false
}

// UserModeKind discriminates the one settable user mode-change variant.
type UserModeKind int

// UserModeInvisible is the only mutable user mode reachable through the mode
// parser; the rest of userModes are reserved.
const UserModeInvisible UserModeKind = iota

// UserModeChange is a single parsed user mode-change event.
type UserModeChange struct {
	Kind UserModeKind
	Add  bool
}

// Symbol returns the mode letter this change affects.
func (c UserModeChange) Symbol() byte {
	switch c.Kind {
	case UserModeInvisible:
		return 'i'
	default:
		return 0
	}
}

// UserModeParser walks a user mode string (e.g. "+i-o"), yielding one
// UserModeChange (or error) per letter.
type UserModeParser struct {
	cursor signCursor
}

// NewUserModeParser creates a parser over a user mode string. There are no
// user-mode parameters: every letter is a bare flag.
func NewUserModeParser(modes string) *UserModeParser {
	return &UserModeParser{cursor: newSignCursor(modes)}
}

// Next returns the next event, or ok=false when the mode string is
// exhausted. A non-nil error means this letter produced no change; the
// caller should skip it and call Next again.
func (p *UserModeParser) Next() (change UserModeChange, err error, ok bool) {
	add, letter, more := p.cursor.next()
	if !more {
		return UserModeChange{}, nil, false
	}

	switch letter {
	case 'i':
		return UserModeChange{Kind: UserModeInvisible, Add: add}, nil, true
	default:
		if strings.IndexByte(userModes, letter) != -1 {
			return UserModeChange{}, &ModeError{Kind: UnsettableMode, Char: letter}, true
		}
		return UserModeChange{}, &ModeError{Kind: UnknownMode, Char: letter}, true
	}
}

// ChannelModeKind discriminates the channel mode-change variants.
type ChannelModeKind int

// Channel mode-change kinds. Listing requests (GetBans, GetExceptions,
// GetInvitations) carry no parameter and are produced when b/e/I is given
// without one.
const (
	InviteOnly ChannelModeKind = iota
	Moderated
	NoPrivMsgFromOutside
	Secret
	TopicRestricted
	Key
	UserLimit
	GetBans
	GetExceptions
	GetInvitations
	ChangeBan
	ChangeException
	ChangeInvitation
	ChangeOperator
	ChangeVoice
)

// ChannelModeChange is a single parsed channel mode-change event.
//
// Param holds the mode's parameter, if any; HasParam distinguishes a
// present-but-empty parameter (treated as absent, per the mode-string
// syntax) from a genuinely supplied one. For UserLimit(-), Param/HasParam
// are both zero; the sign (Add) alone tells set from clear.
type ChannelModeChange struct {
	Kind     ChannelModeKind
	Add      bool
	Param    string
	HasParam bool
}

// Symbol returns the mode letter this change affects, or 0 for a kind with
// no single-letter representation (there are none currently, but callers
// should not assume the zero value means failure).
func (c ChannelModeChange) Symbol() byte {
	switch c.Kind {
	case InviteOnly:
		return 'i'
	case Moderated:
		return 'm'
	case NoPrivMsgFromOutside:
		return 'n'
	case Secret:
		return 's'
	case TopicRestricted:
		return 't'
	case Key:
		return 'k'
	case UserLimit:
		return 'l'
	case GetBans, ChangeBan:
		return 'b'
	case GetExceptions, ChangeException:
		return 'e'
	case GetInvitations, ChangeInvitation:
		return 'I'
	case ChangeOperator:
		return 'o'
	case ChangeVoice:
		return 'v'
	default:
		return 0
	}
}

// ChannelModeParser walks a channel mode string plus an ordered parameter
// stream, yielding one ChannelModeChange (or error) per letter.
// Parameters are drawn from the stream positionally as each
// parameter-requiring letter is encountered; an empty-string parameter
// counts as absent.
type ChannelModeParser struct {
	cursor signCursor
	params []string
	pos    int
}

// NewChannelModeParser creates a parser over a channel mode string and its
// ordered auxiliary parameters.
func NewChannelModeParser(modes string, params []string) *ChannelModeParser {
	return &ChannelModeParser{cursor: newSignCursor(modes), params: params}
}

// ParseChannelModesSimple creates a parser with no parameter stream. This is
// the convenience form used to validate configuration strings
// (IsChannelModeString) and to apply a channel's default modes at
// construction, where parameterized letters simply fail with
// MissingModeParam and are skipped.
func ParseChannelModesSimple(modes string) *ChannelModeParser {
	return NewChannelModeParser(modes, nil)
}

// nextParam returns the next parameter in the stream, treating an
// empty-string parameter as absent.
func (p *ChannelModeParser) nextParam() (string, bool) {
	if p.pos >= len(p.params) {
		return "", false
	}
	param := p.params[p.pos]
	p.pos++
	if param == "" {
		return "", false
	}
	return param, true
}

// Next returns the next event, or ok=false when the mode string is
// exhausted. A non-nil error means this letter produced no change; callers
// should skip it and call Next again — subsequent letters in the same mode
// string are still attempted.
func (p *ChannelModeParser) Next() (change ChannelModeChange, err error, ok bool) {
	add, letter, more := p.cursor.next()
	if !more {
		return ChannelModeChange{}, nil, false
	}

	switch letter {
	case 'i':
		return ChannelModeChange{Kind: InviteOnly, Add: add}, nil, true
	case 'm':
		return ChannelModeChange{Kind: Moderated, Add: add}, nil, true
	case 'n':
		return ChannelModeChange{Kind: NoPrivMsgFromOutside, Add: add}, nil, true
	case 's':
		return ChannelModeChange{Kind: Secret, Add: add}, nil, true
	case 't':
		return ChannelModeChange{Kind: TopicRestricted, Add: add}, nil, true

	case 'k':
		param, has := p.nextParam()
		if !has {
			return ChannelModeChange{}, &ModeError{Kind: MissingModeParam, Char: letter}, true
		}
		return ChannelModeChange{Kind: Key, Add: add, Param: param, HasParam: true}, nil, true

	case 'l':
		if !add {
			return ChannelModeChange{Kind: UserLimit, Add: false}, nil, true
		}
		param, has := p.nextParam()
		if !has {
			return ChannelModeChange{}, &ModeError{Kind: MissingModeParam, Char: letter}, true
		}
		return ChannelModeChange{Kind: UserLimit, Add: true, Param: param, HasParam: true}, nil, true

	case 'b':
		if param, has := p.nextParam(); has {
			return ChannelModeChange{Kind: ChangeBan, Add: add, Param: param, HasParam: true}, nil, true
		}
		return ChannelModeChange{Kind: GetBans}, nil, true

	case 'e':
		if param, has := p.nextParam(); has {
			return ChannelModeChange{Kind: ChangeException, Add: add, Param: param, HasParam: true}, nil, true
		}
		return ChannelModeChange{Kind: GetExceptions}, nil, true

	case 'I':
		if param, has := p.nextParam(); has {
			return ChannelModeChange{Kind: ChangeInvitation, Add: add, Param: param, HasParam: true}, nil, true
		}
		return ChannelModeChange{Kind: GetInvitations}, nil, true

	case 'o':
		param, has := p.nextParam()
		if !has {
			return ChannelModeChange{}, &ModeError{Kind: MissingModeParam, Char: letter}, true
		}
		return ChannelModeChange{Kind: ChangeOperator, Add: add, Param: param, HasParam: true}, nil, true

	case 'v':
		param, has := p.nextParam()
		if !has {
			return ChannelModeChange{}, &ModeError{Kind: MissingModeParam, Char: letter}, true
		}
		return ChannelModeChange{Kind: ChangeVoice, Add: add, Param: param, HasParam: true}, nil, true

	default:
		return ChannelModeChange{}, &ModeError{Kind: UnknownMode, Char: letter}, true
	}
}

// IsChannelModeString reports whether every letter in s parses successfully
// as a channel mode change, given no parameters. It's used to validate
// configuration input (the default channel modes string).
func IsChannelModeString(s string) bool {
	p := ParseChannelModesSimple(s)
	for {
		_, err, ok := p.Next()
		if !ok {
			return true
		}
		if err != nil {
			return false
		}
	}
}

// parseUserLimit parses the 'l' mode's parameter as a nonnegative integer.
func parseUserLimit(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
