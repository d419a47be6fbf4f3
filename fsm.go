package main

import "errors"

// ConnState is a client's registration progress. The FSM tracks two
// orthogonal axes: whether NICK and USER have both arrived, and whether
// capability negotiation is open. A client reaches Registered only once
// both have happened and no negotiation is outstanding.
type ConnState int

// The nine states. ConnectionEstablished is the initial state; Quit is
// terminal.
const (
	ConnectionEstablished ConnState = iota
	NickGiven
	UserGiven
	CapGiven
	CapNickGiven
	CapUserGiven
	CapNegotiation
	Registered
	Quit
)

// errIllegalCommand is returned by Apply when a command isn't legal in the
// current state. It carries no detail beyond that, matching the original
// source's Result<ConnectionState, ()>: the FSM itself doesn't know which
// numeric reply a rejection should produce, only that it's rejected —
// picking one (e.g. ERR_NOTREGISTERED) is a per-command decision made by
// the caller in commands.go.
var errIllegalCommand = errors.New("command not legal in current connection state")

// Apply computes the state reached by issuing command (with subCommand,
// meaningful only when command is "CAP") from s. It returns an error
// without changing state when the command is illegal in s.
func (s ConnState) Apply(command, subCommand string) (ConnState, error) {
	switch s {
	case ConnectionEstablished:
		switch command {
		case "CAP":
			switch subCommand {
			case "END":
				return s, nil
			case "LS", "REQ":
				return CapGiven, nil
			default:
				return s, nil
			}
		case "PASS":
			return s, nil
		case "NICK":
			return NickGiven, nil
		case "USER":
			return UserGiven, nil
		case "QUIT":
			return Quit, nil
		default:
			return s, errIllegalCommand
		}

	case NickGiven:
		switch command {
		case "CAP":
			switch subCommand {
			case "END":
				return s, nil
			case "LS", "REQ":
				return CapNickGiven, nil
			default:
				return s, nil
			}
		case "PASS", "NICK":
			return s, nil
		case "USER":
			return Registered, nil
		case "QUIT":
			return Quit, nil
		default:
			return s, errIllegalCommand
		}

	case UserGiven:
		switch command {
		case "CAP":
			switch subCommand {
			case "END":
				return s, nil
			case "LS", "REQ":
				return CapUserGiven, nil
			default:
				return s, nil
			}
		case "PASS":
			return s, nil
		case "NICK":
			return Registered, nil
		case "QUIT":
			return Quit, nil
		default:
			return s, errIllegalCommand
		}

	case CapGiven:
		switch command {
		case "CAP":
			if subCommand == "END" {
				return ConnectionEstablished, nil
			}
			return s, nil
		case "PASS":
			return s, nil
		case "NICK":
			return CapNickGiven, nil
		case "USER":
			return CapUserGiven, nil
		case "QUIT":
			return Quit, nil
		default:
			return s, errIllegalCommand
		}

	case CapNickGiven:
		switch command {
		case "CAP":
			if subCommand == "END" {
				return NickGiven, nil
			}
			return s, nil
		case "PASS", "NICK":
			return s, nil
		case "USER":
			return CapNegotiation, nil
		case "QUIT":
			return Quit, nil
		default:
			return s, errIllegalCommand
		}

	case CapUserGiven:
		switch command {
		case "CAP":
			if subCommand == "END" {
				return UserGiven, nil
			}
			return s, nil
		case "PASS":
			return s, nil
		case "NICK":
			return CapNegotiation, nil
		case "QUIT":
			return Quit, nil
		default:
			return s, errIllegalCommand
		}

	case CapNegotiation:
		switch command {
		case "CAP":
			if subCommand == "END" {
				return Registered, nil
			}
			return s, nil
		case "PASS", "NICK":
			return s, nil
		case "QUIT":
			return Quit, nil
		default:
			return s, errIllegalCommand
		}

	case Registered:
		switch command {
		case "PASS", "USER":
			return s, errIllegalCommand
		case "QUIT":
			return Quit, nil
		default:
			return s, nil
		}

	default: // Quit
		return s, errIllegalCommand
	}
}

// CanIssueCommand reports whether command/subCommand is legal in s,
// without mutating anything.
func (s ConnState) CanIssueCommand(command, subCommand string) bool {
	_, err := s.Apply(command, subCommand)
	return err == nil
}

// IsRegistered reports whether s is the Registered state.
func (s ConnState) IsRegistered() bool {
	return s == Registered
}
