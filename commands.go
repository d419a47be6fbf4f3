package main

import (
	"fmt"
	"strings"

	"github.com/horgh/irc"
)

// Dispatch is the single entry point a connection's reader goroutine
// calls for each parsed inbound line. It takes the Directory's lock for
// the whole of one command's effect, per spec.md §5 — this is the "brief
// hold of the shared lock" the concurrency model describes.
func Dispatch(d *Directory, key MembershipKey, msg irc.Message) {
	d.Lock()
	defer d.Unlock()

	c := d.clientByKey(key)
	if c == nil {
		return
	}

	subCommand := ""
	if msg.Command == "CAP" && len(msg.Params) > 0 {
		subCommand = strings.ToUpper(msg.Params[0])
	}

	if !c.CanIssueCommand(msg.Command, subCommand) {
		replyIllegalCommand(d, c, msg.Command)
		return
	}
	wasRegistered := c.IsRegistered()
	_, _ = c.ApplyCommand(msg.Command, subCommand)

	if msg.Command != "PING" {
		c.UpdateIdleTime()
	}

	if !wasRegistered && c.IsRegistered() {
		welcomeBurst(d, c)
	}

	switch msg.Command {
	case "PASS":
		passCommand(c, msg)
	case "CAP":
		capCommand(d, c, msg)
	case "NICK":
		nickCommand(d, key, c, msg)
	case "USER":
		userCommand(d, c, msg)
	case "JOIN":
		joinCommand(d, key, c, msg)
	case "PART":
		partCommand(d, key, c, msg)
	case "PRIVMSG", "NOTICE":
		privmsgCommand(d, key, c, msg)
	case "TOPIC":
		topicCommand(d, key, c, msg)
	case "MODE":
		modeCommand(d, key, c, msg)
	case "PING":
		pingCommand(d, c, msg)
	case "OPER":
		operCommand(d, c, msg)
	case "QUIT":
		quitCommand(d, key, c, msg)
	}
}

// reply sends a numeric reply from the server to c, prefixing the
// client's own nick as the first parameter — the same convention catbox's
// messageFromServer uses for numeric commands.
func reply(d *Directory, c *Client, code string, params ...string) {
	full := append([]string{c.Nick()}, params...)
	c.Send(irc.Message{
		Prefix:  d.Config.ServerName,
		Command: code,
		Params:  full,
	})
}

// replyErr sends err's numeric code and text as a reply, with extra
// leading parameters (e.g. the target nick/channel) before the text.
func replyErr(d *Directory, c *Client, err *ReplyError, leading ...string) {
	params := append(append([]string{}, leading...), err.Text)
	reply(d, c, err.Code, params...)
}

// replyIllegalCommand picks a numeric for a command the FSM rejected.
// Before registration completes, that's always ERR_NOTREGISTERED;
// afterward, the one illegal case is re-sending PASS/USER, which is
// ERR_ALREADYREGISTRED.
func replyIllegalCommand(d *Directory, c *Client, command string) {
	if c.IsRegistered() {
		reply(d, c, "462", "Unauthorized command (already registered)")
		return
	}
	reply(d, c, "451", "You have not registered")
}

// passCommand records that the client has issued PASS. Neither catbox nor
// the original source actually validates a connect password anywhere
// (has_given_password is declared and initialized but never set in
// client.rs) and SPEC_FULL.md defines no server-wide connect password to
// check it against, only the opers map used by OPER — so receiving PASS is
// itself what sets the flag, with no comparison performed. See DESIGN.md.
func passCommand(c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		return
	}
	c.HasGivenPassword = true
}

// welcomeBurst sends the RFC 2812 post-registration numerics a client
// receives exactly once, the moment its connection state reaches
// Registered (whichever of the NICK/USER/CAP END orderings got it there).
func welcomeBurst(d *Directory, c *Client) {
	reply(d, c, "001", fmt.Sprintf("Welcome to the Internet Relay Network %s", c.FullName()))
	reply(d, c, "002", fmt.Sprintf("Your host is %s, running version %s", d.Config.ServerName, d.Config.Version))
	reply(d, c, "003", fmt.Sprintf("This server was created %s", d.Config.CreatedDate))

	// 004 RPL_MYINFO: <servername> <version> <user modes> <channel modes>.
	// The mode letters come straight from the constants in modes.go rather
	// than being restated here, so this line can't drift from the 005
	// CHANMODES token. The channel letters include flags (a, p, q) that
	// ChannelModeParser does not parse.
	reply(d, c, "004", d.Config.ServerName, d.Config.Version, userModes, simpleChanModes+extendedChanModes)

	// 005 RPL_ISUPPORT: the CHANMODES grouping plus the nick-length limit
	// this server enforces in nickCommand.
	reply(d, c, "005", chanModesISupport, fmt.Sprintf("NICKLEN=%d", d.Config.MaxNickLength), "are supported by this server")

	lusersCommand(d, c)
	motdCommand(d, c)
}

// lusersCommand reports user/channel counts, grounded on catbox's
// ircd.go lusersCommand (251/254/255 over the same three directory maps
// this repo keeps).
func lusersCommand(d *Directory, c *Client) {
	reply(d, c, "251", fmt.Sprintf("There are %d users and 0 invisible on 1 server", len(d.nicks)))
	reply(d, c, "254", fmt.Sprintf("%d", len(d.channels)), "channels formed")
	reply(d, c, "255", fmt.Sprintf("I have %d clients and 1 server", len(d.clients)))
}

// motdCommand sends the configured MOTD as a single-line body, grounded
// on catbox's ircd.go motdCommand (375/372/376).
func motdCommand(d *Directory, c *Client) {
	reply(d, c, "375", fmt.Sprintf("- %s Message of the day - ", d.Config.ServerName))
	reply(d, c, "372", "- "+d.Config.MOTD)
	reply(d, c, "376", "End of MOTD command")
}

func capCommand(d *Directory, c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		return
	}
	sub := strings.ToUpper(msg.Params[0])

	switch sub {
	case "LS":
		c.Send(capLSMessage(c.Nick()))
		if len(msg.Params) > 1 {
			c.Capabilities.SetCapVersion(msg.Params[1])
		}

	case "REQ":
		if len(msg.Params) < 2 {
			return
		}
		list := msg.Params[1]
		if !AreSupported(list) {
			c.Send(irc.Message{
				Prefix:  d.Config.ServerName,
				Command: "CAP",
				Params:  []string{c.Nick(), "NAK", list},
			})
			return
		}
		c.Capabilities.UpdateCapabilities(list)
		c.Send(irc.Message{
			Prefix:  d.Config.ServerName,
			Command: "CAP",
			Params:  []string{c.Nick(), "ACK", list},
		})

	case "LIST":
		c.Send(capListMessage(c.Nick(), &c.Capabilities))

	case "END":
		// No reply: ending negotiation silently resumes registration, per
		// the FSM transition already applied in Dispatch.
	}
}

func nickCommand(d *Directory, key MembershipKey, c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		reply(d, c, "431", "No nickname given")
		return
	}

	nick := msg.Params[0]
	if len(nick) > d.Config.MaxNickLength {
		nick = nick[0:d.Config.MaxNickLength]
	}
	if !isValidNick(d.Config.MaxNickLength, nick) {
		reply(d, c, "432", nick, "Erroneous nickname")
		return
	}
	if d.isNickInUse(nick, key) {
		reply(d, c, "433", nick, "Nickname is already in use")
		return
	}

	d.setNick(key, nick)
}

func userCommand(d *Directory, c *Client, msg irc.Message) {
	if len(msg.Params) < 4 {
		reply(d, c, "461", "USER", "Not enough parameters")
		return
	}
	user := msg.Params[0]
	if !isValidUser(d.Config.MaxNickLength, user) {
		// No ERR_* numeric in the RFC fits an invalid username; follow
		// catbox's lead (and ircd-ratbox's) and send a plain ERROR.
		c.Send(irc.Message{Command: "ERROR", Params: []string{"Invalid username"}})
		return
	}
	c.SetUserReal(user, msg.Params[3])
}

// operCommand grants operator status to clients that know a name/password
// pair from the opers config file, grounded on catbox's LocalUser.operCommand
// (local_user.go). Oper status is a direct flag flip, not a MODE-parser
// path — 'o' is one of the reserved letters UserModeParser won't accept
// (see modes.go), matching the source this server is a port of.
func operCommand(d *Directory, c *Client, msg irc.Message) {
	if len(msg.Params) < 2 {
		reply(d, c, "461", "OPER", "Not enough parameters")
		return
	}

	if c.Operator {
		reply(d, c, "381", "You are already an IRC operator")
		return
	}

	pass, exists := d.Config.Opers[msg.Params[0]]
	if !exists || pass != msg.Params[1] {
		reply(d, c, "464", "Password incorrect")
		return
	}

	c.Operator = true
	reply(d, c, "381", "You are now an IRC operator")
}

func joinCommand(d *Directory, key MembershipKey, c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		reply(d, c, "461", "JOIN", "Not enough parameters")
		return
	}

	// Like catbox, we don't support comma-separated multi-channel JOIN.
	channelName := canonicalizeChannel(msg.Params[0])
	if !isValidChannel(channelName) {
		reply(d, c, "403", channelName, "Invalid channel name")
		return
	}

	isNew := d.getChannel(channelName) == nil
	channel := d.getOrCreateChannel(channelName)

	if _, onChannel := channel.Members[key]; onChannel {
		reply(d, c, "443", channelName, "is already on channel")
		return
	}

	if !channel.CanJoin(c.Nick()) {
		reply(d, c, "474", channelName, "Cannot join channel (+b)")
		return
	}

	channel.AddMember(key)

	for member := range channel.Members {
		target := d.clientByKey(member)
		if target == nil {
			continue
		}
		target.Send(irc.Message{
			Prefix:  c.FullName(),
			Command: "JOIN",
			Params:  []string{channelName},
		})
	}

	if isNew {
		c.Send(irc.Message{
			Prefix:  d.Config.ServerName,
			Command: "MODE",
			Params:  []string{channelName, channel.Modes()},
		})
	}

	if channel.Topic != "" {
		reply(d, c, "332", channelName, channel.Topic)
	}

	names := make([]string, 0, len(channel.Members))
	for member, modes := range channel.Members {
		target := d.clientByKey(member)
		if target == nil {
			continue
		}
		prefix := ""
		if sym := modes.Symbol(); sym != ' ' {
			prefix = string(sym)
		}
		names = append(names, prefix+target.Nick())
	}
	reply(d, c, "353", channel.Symbol(), channelName, strings.Join(names, " "))
	reply(d, c, "366", channelName, "End of NAMES list")
}

func partCommand(d *Directory, key MembershipKey, c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		reply(d, c, "461", "PART", "Not enough parameters")
		return
	}

	channelName := canonicalizeChannel(msg.Params[0])
	channel := d.getChannel(channelName)
	if channel == nil {
		reply(d, c, "403", channelName, "No such channel")
		return
	}
	if _, onChannel := channel.Members[key]; !onChannel {
		reply(d, c, "442", channelName, "You're not on that channel")
		return
	}

	message := ""
	if len(msg.Params) > 1 {
		message = msg.Params[1]
	}

	partParams := []string{channelName}
	if message != "" {
		partParams = append(partParams, message)
	}
	for member := range channel.Members {
		target := d.clientByKey(member)
		if target == nil {
			continue
		}
		target.Send(irc.Message{
			Prefix:  c.FullName(),
			Command: "PART",
			Params:  partParams,
		})
	}

	channel.RemoveMember(key)
	d.removeChannelIfEmpty(channelName)
}

func privmsgCommand(d *Directory, key MembershipKey, c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		reply(d, c, "411", "No recipient given ("+msg.Command+")")
		return
	}
	if len(msg.Params) < 2 || msg.Params[1] == "" {
		reply(d, c, "412", "No text to send")
		return
	}

	target := msg.Params[0]
	text := msg.Params[1]

	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		channelName := canonicalizeChannel(target)
		channel := d.getChannel(channelName)
		if channel == nil {
			reply(d, c, "403", channelName, "No such channel")
			return
		}
		if !channel.CanTalk(key) {
			reply(d, c, "404", channelName, "Cannot send to channel")
			return
		}
		for member := range channel.Members {
			if member == key && !c.Capabilities.EchoMessage {
				continue
			}
			recipient := d.clientByKey(member)
			if recipient == nil {
				continue
			}
			recipient.Send(irc.Message{
				Prefix:  c.FullName(),
				Command: msg.Command,
				Params:  []string{channelName, text},
			})
		}
		return
	}

	recipient := d.clientByNick(target)
	if recipient == nil {
		reply(d, c, "401", target, "No such nick/channel")
		return
	}
	recipient.Send(irc.Message{
		Prefix:  c.FullName(),
		Command: msg.Command,
		Params:  []string{target, text},
	})
	if c.Capabilities.EchoMessage {
		c.Send(irc.Message{
			Prefix:  c.FullName(),
			Command: msg.Command,
			Params:  []string{target, text},
		})
	}
}

func topicCommand(d *Directory, key MembershipKey, c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		reply(d, c, "461", "TOPIC", "Not enough parameters")
		return
	}

	channelName := canonicalizeChannel(msg.Params[0])
	channel := d.getChannel(channelName)
	if channel == nil {
		reply(d, c, "403", channelName, "No such channel")
		return
	}
	if _, onChannel := channel.Members[key]; !onChannel {
		reply(d, c, "442", channelName, "You're not on that channel")
		return
	}

	if len(msg.Params) == 1 {
		if channel.Topic == "" {
			reply(d, c, "331", channelName, "No topic is set")
			return
		}
		reply(d, c, "332", channelName, channel.Topic)
		return
	}

	if channel.TopicRestricted && !channel.Members[key].Operator {
		reply(d, c, "482", channelName, "You're not channel operator")
		return
	}

	channel.Topic = msg.Params[1]
	for member := range channel.Members {
		target := d.clientByKey(member)
		if target == nil {
			continue
		}
		target.Send(irc.Message{
			Prefix:  c.FullName(),
			Command: "TOPIC",
			Params:  []string{channelName, channel.Topic},
		})
	}
}

func modeCommand(d *Directory, key MembershipKey, c *Client, msg irc.Message) {
	if len(msg.Params) == 0 {
		reply(d, c, "461", "MODE", "Not enough parameters")
		return
	}

	target := msg.Params[0]
	modes := ""
	var params []string
	if len(msg.Params) > 1 {
		modes = msg.Params[1]
		params = msg.Params[2:]
	}

	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		channelModeCommand(d, key, c, canonicalizeChannel(target), modes, params)
		return
	}

	userModeCommand(d, c, target, modes)
}

func userModeCommand(d *Directory, c *Client, target, modes string) {
	if canonicalizeNick(target) != canonicalizeNick(c.Nick()) {
		reply(d, c, "502", "Cannot change mode for other users")
		return
	}

	if modes == "" {
		reply(d, c, "221", c.WriteModes())
		return
	}

	p := NewUserModeParser(modes)
	for {
		change, err, ok := p.Next()
		if !ok {
			break
		}
		if err != nil {
			continue
		}
		if c.ApplyUserModeChange(change) {
			sign := "-"
			if change.Add {
				sign = "+"
			}
			c.Send(irc.Message{
				Prefix:  c.FullName(),
				Command: "MODE",
				Params:  []string{c.Nick(), sign + string(change.Symbol())},
			})
		}
	}
}

func channelModeCommand(d *Directory, key MembershipKey, c *Client, channelName, modes string, params []string) {
	channel := d.getChannel(channelName)
	if channel == nil {
		reply(d, c, "403", channelName, "No such channel")
		return
	}
	if _, onChannel := channel.Members[key]; !onChannel {
		reply(d, c, "442", channelName, "You're not on that channel")
		return
	}

	if modes == "" {
		reply(d, c, "324", channelName, channel.Modes())
		return
	}

	p := NewChannelModeParser(modes, params)
	var applied []ChannelModeChange
	for {
		change, err, ok := p.Next()
		if !ok {
			break
		}
		if err != nil {
			continue
		}

		switch change.Kind {
		case GetBans:
			for mask := range channel.BanMask {
				reply(d, c, "367", channelName, mask)
			}
			reply(d, c, "368", channelName, "End of channel ban list")
			continue
		case GetExceptions:
			for mask := range channel.ExceptionMask {
				reply(d, c, "348", channelName, mask)
			}
			reply(d, c, "349", channelName, "End of channel exception list")
			continue
		case GetInvitations:
			for mask := range channel.InvitationMask {
				reply(d, c, "346", channelName, mask)
			}
			reply(d, c, "347", channelName, "End of channel invite list")
			continue
		}

		ok2, applyErr := channel.ApplyModeChange(change, d.nickOf)
		if applyErr != nil {
			if re, isReply := applyErr.(*ReplyError); isReply {
				replyErr(d, c, re, channelName)
			}
			continue
		}
		if ok2 {
			applied = append(applied, change)
		}
	}

	if len(applied) == 0 {
		return
	}

	var sb strings.Builder
	params2 := []string{}
	lastAdd := true
	for i, change := range applied {
		if i == 0 || change.Add != lastAdd {
			if change.Add {
				sb.WriteByte('+')
			} else {
				sb.WriteByte('-')
			}
			lastAdd = change.Add
		}
		sb.WriteByte(change.Symbol())
		if change.HasParam {
			params2 = append(params2, change.Param)
		}
	}

	modeParams := append([]string{channelName, sb.String()}, params2...)
	for member := range channel.Members {
		target := d.clientByKey(member)
		if target == nil {
			continue
		}
		target.Send(irc.Message{
			Prefix:  c.FullName(),
			Command: "MODE",
			Params:  modeParams,
		})
	}
}

func pingCommand(d *Directory, c *Client, msg irc.Message) {
	token := ""
	if len(msg.Params) > 0 {
		token = msg.Params[0]
	}
	c.Send(irc.Message{
		Prefix:  d.Config.ServerName,
		Command: "PONG",
		Params:  []string{d.Config.ServerName, token},
	})
}

func quitCommand(d *Directory, key MembershipKey, c *Client, msg irc.Message) {
	message := "Client quit"
	if len(msg.Params) > 0 && msg.Params[0] != "" {
		message = msg.Params[0]
	}

	told := map[MembershipKey]struct{}{}
	for _, channel := range d.channels {
		if _, onChannel := channel.Members[key]; !onChannel {
			continue
		}
		for member := range channel.Members {
			if member == key {
				continue
			}
			if _, already := told[member]; already {
				continue
			}
			target := d.clientByKey(member)
			if target == nil {
				continue
			}
			target.Send(irc.Message{
				Prefix:  c.FullName(),
				Command: "QUIT",
				Params:  []string{message},
			})
			told[member] = struct{}{}
		}
	}

	c.Send(irc.Message{
		Prefix:  c.FullName(),
		Command: "ERROR",
		Params:  []string{"Closing Link: " + c.Host() + " (" + message + ")"},
	})

	d.removeClient(key)
	c.Queue().Close()
}
