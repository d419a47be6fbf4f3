package main

import "strings"

// 50 from RFC
const maxChannelLength = 50

// Arbitrary. Something low enough we won't hit message limit.
const maxTopicLength = 300

// canonicalizeNick converts the given nick to its canonical representation
// (which must be unique).
//
// Note: We don't check validity or strip whitespace.
func canonicalizeNick(n string) string {
	return strings.ToLower(n)
}

// canonicalizeChannel converts the given channel to its canonical
// representation (which must be unique).
//
// Note: We don't check validity or strip whitespace.
func canonicalizeChannel(c string) string {
	return strings.ToLower(c)
}

// isNickSpecial reports whether r is in RFC 2812's "special" class for
// nicknames: the punctuation a nick may use anywhere a letter could go.
func isNickSpecial(r rune) bool {
	switch r {
	case '[', ']', '\\', '`', '_', '^', '{', '|', '}':
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isValidNick checks if a nickname is valid, per RFC 2812 section 2.3.1:
// nickname = ( letter / special ) *8( letter / digit / special / "-" ),
// with maxLen taking the place of the RFC's fixed 9-character cap.
func isValidNick(maxLen int, n string) bool {
	if len(n) == 0 || len(n) > maxLen {
		return false
	}

	for i, r := range n {
		switch {
		case isLetter(r), isNickSpecial(r):
			continue
		case r >= '0' && r <= '9', r == '-':
			// Neither digits nor '-' may open a nickname.
			if i == 0 {
				return false
			}
			continue
		default:
			return false
		}
	}

	return true
}

// isValidUser checks if a username (USER command) is valid, per RFC 2812
// section 2.3.1: any octet except NUL, CR, LF, space, and '@' (the latter
// so a user@host can't be smuggled into the username field).
func isValidUser(maxLen int, u string) bool {
	if len(u) == 0 || len(u) > maxLen {
		return false
	}

	for _, r := range u {
		switch r {
		case 0, '\r', '\n', ' ', '@':
			return false
		}
	}

	return true
}

// channelPrefixes are the characters RFC 2812 allows to open a channel
// name: '#', '+', '&' and '!'. JOIN creates a channel (via
// getOrCreateChannel) for a name with any of them.
const channelPrefixes = "#+&!"

// isValidChannel checks a channel name for validity, per RFC 2812's
// chanstring production: any octet except NUL, BELL, CR, LF, space, comma,
// and ':' (the last is the namespace separator for "safe" ! channels).
//
// You should canonicalize it before using this function.
func isValidChannel(c string) bool {
	if len(c) == 0 || len(c) > maxChannelLength {
		return false
	}

	if !strings.ContainsRune(channelPrefixes, rune(c[0])) {
		return false
	}

	for _, r := range c[1:] {
		switch r {
		case 0, '\a', '\r', '\n', ' ', ',', ':':
			return false
		}
	}

	return true
}
