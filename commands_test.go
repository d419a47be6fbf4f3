package main

import (
	"testing"

	"github.com/horgh/irc"
)

func newTestDispatchDirectory() *Directory {
	d := NewDirectory()
	d.Config.ServerName = "irc.example.com"
	d.Config.Version = "1.0"
	d.Config.CreatedDate = "2026-01-01"
	d.Config.MOTD = "hi"
	d.Config.MaxNickLength = 20
	d.Config.DefaultChannelModes = ""
	return d
}

func addTestClient(d *Directory, key MembershipKey, host string) *Client {
	c := NewClient(host)
	d.Lock()
	d.addClient(key, c)
	d.Unlock()
	return c
}

// drainQueued pulls whatever is currently buffered in c's outbound queue
// without blocking and without closing it, so the client can keep
// receiving afterward. Dispatch's Sends are synchronous, so by the time
// Dispatch returns, anything it queued is already sitting in buf.
func drainQueued(c *Client) []irc.Message {
	q := c.Queue()
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.buf
	q.buf = nil
	return msgs
}

func commandsOf(msgs []irc.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Command)
	}
	return out
}

func TestDispatchRegistrationSendsWelcomeBurst(t *testing.T) {
	d := newTestDispatchDirectory()
	key := MembershipKey("k1")
	c := addTestClient(d, key, "203.0.113.1")

	Dispatch(d, key, irc.Message{Command: "NICK", Params: []string{"alice"}})
	Dispatch(d, key, irc.Message{Command: "USER", Params: []string{"auser", "0", "*", "Alice Realname"}})

	if !c.IsRegistered() {
		t.Fatalf("client should be registered after NICK+USER")
	}

	commands := commandsOf(drainQueued(c))

	want := []string{"001", "002", "003", "004", "005", "251", "254", "255", "375", "372", "376"}
	if len(commands) != len(want) {
		t.Fatalf("welcome burst = %v, wanted %v", commands, want)
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Errorf("welcome burst[%d] = %s, wanted %s (full: %v)", i, commands[i], want[i], commands)
		}
	}
}

func TestDispatchWelcomeBurstFiresOnlyOnce(t *testing.T) {
	d := newTestDispatchDirectory()
	key := MembershipKey("k1")
	c := addTestClient(d, key, "203.0.113.1")

	Dispatch(d, key, irc.Message{Command: "NICK", Params: []string{"alice"}})
	Dispatch(d, key, irc.Message{Command: "USER", Params: []string{"auser", "0", "*", "Alice Realname"}})
	drainQueued(c)

	// A NICK change after registration must not send the burst again.
	Dispatch(d, key, irc.Message{Command: "NICK", Params: []string{"alice2"}})
	for _, m := range drainQueued(c) {
		if m.Command == "001" {
			t.Errorf("the welcome burst should not fire a second time for an already registered client")
		}
	}

	// A plain NICK from a second, not-yet-registered client shouldn't
	// trigger anything resembling the welcome burst.
	key2 := MembershipKey("k2")
	c2 := addTestClient(d, key2, "203.0.113.2")
	Dispatch(d, key2, irc.Message{Command: "NICK", Params: []string{"bob"}})
	for _, m := range drainQueued(c2) {
		if m.Command == "001" {
			t.Errorf("NICK alone should not yet trigger the welcome burst")
		}
	}
}

func TestDispatchNickRejectsInUseAndInvalid(t *testing.T) {
	d := newTestDispatchDirectory()
	key1 := MembershipKey("k1")
	key2 := MembershipKey("k2")
	addTestClient(d, key1, "203.0.113.1")
	c2 := addTestClient(d, key2, "203.0.113.2")

	Dispatch(d, key1, irc.Message{Command: "NICK", Params: []string{"alice"}})

	Dispatch(d, key2, irc.Message{Command: "NICK", Params: []string{"alice"}})
	msgs := drainQueued(c2)
	if len(msgs) != 1 || msgs[0].Command != "433" {
		t.Errorf("NICK collision should send 433, got %v", commandsOf(msgs))
	}

	Dispatch(d, key2, irc.Message{Command: "NICK", Params: []string{"-bad"}})
	msgs = drainQueued(c2)
	if len(msgs) != 1 || msgs[0].Command != "432" {
		t.Errorf("invalid NICK should send 432, got %v", commandsOf(msgs))
	}
}

func TestDispatchPassSetsHasGivenPassword(t *testing.T) {
	d := newTestDispatchDirectory()
	key := MembershipKey("k1")
	c := addTestClient(d, key, "203.0.113.1")

	if c.HasGivenPassword {
		t.Fatalf("fresh client should not have given a password")
	}
	Dispatch(d, key, irc.Message{Command: "PASS", Params: []string{"secret"}})
	if !c.HasGivenPassword {
		t.Errorf("PASS with a parameter should set HasGivenPassword")
	}
}

func registerTestClient(d *Directory, key MembershipKey, host, nick, user string) *Client {
	c := addTestClient(d, key, host)
	Dispatch(d, key, irc.Message{Command: "NICK", Params: []string{nick}})
	Dispatch(d, key, irc.Message{Command: "USER", Params: []string{user, "0", "*", user}})
	drainQueued(c)
	return c
}

func TestDispatchJoinBroadcastsAndNames(t *testing.T) {
	d := newTestDispatchDirectory()
	k1 := MembershipKey("a")
	k2 := MembershipKey("b")
	alice := registerTestClient(d, k1, "203.0.113.1", "alice", "a")
	bob := registerTestClient(d, k2, "203.0.113.2", "bob", "b")

	Dispatch(d, k1, irc.Message{Command: "JOIN", Params: []string{"#test"}})
	aliceMsgs := drainQueued(alice)
	foundJoin, foundNames := false, false
	for _, m := range aliceMsgs {
		if m.Command == "JOIN" {
			foundJoin = true
		}
		if m.Command == "353" {
			foundNames = true
		}
	}
	if !foundJoin || !foundNames {
		t.Errorf("JOIN should produce a JOIN broadcast and a NAMES reply, got %v", commandsOf(aliceMsgs))
	}

	Dispatch(d, k2, irc.Message{Command: "JOIN", Params: []string{"#test"}})
	aliceMsgs = drainQueued(alice)
	if len(aliceMsgs) != 1 || aliceMsgs[0].Command != "JOIN" {
		t.Errorf("alice should see bob's JOIN broadcast, got %v", commandsOf(aliceMsgs))
	}

	bobMsgs := drainQueued(bob)
	if len(bobMsgs) == 0 {
		t.Errorf("bob should have received his own NAMES burst after joining #test")
	}
}

func TestDispatchPrivmsgToChannelRequiresMembership(t *testing.T) {
	d := newTestDispatchDirectory()
	k1 := MembershipKey("a")
	alice := registerTestClient(d, k1, "203.0.113.1", "alice", "a")

	Dispatch(d, k1, irc.Message{Command: "PRIVMSG", Params: []string{"#nonexistent", "hi"}})
	msgs := drainQueued(alice)
	if len(msgs) != 1 || msgs[0].Command != "403" {
		t.Errorf("PRIVMSG to a nonexistent channel should send 403, got %v", commandsOf(msgs))
	}
}

func TestDispatchPrivmsgChannelDelivery(t *testing.T) {
	d := newTestDispatchDirectory()
	k1 := MembershipKey("a")
	k2 := MembershipKey("b")
	alice := registerTestClient(d, k1, "203.0.113.1", "alice", "a")
	bob := registerTestClient(d, k2, "203.0.113.2", "bob", "b")

	Dispatch(d, k1, irc.Message{Command: "JOIN", Params: []string{"#test"}})
	drainQueued(alice)
	Dispatch(d, k2, irc.Message{Command: "JOIN", Params: []string{"#test"}})
	drainQueued(alice)
	drainQueued(bob)

	Dispatch(d, k1, irc.Message{Command: "PRIVMSG", Params: []string{"#test", "hello"}})
	bobMsgs := drainQueued(bob)
	if len(bobMsgs) != 1 || bobMsgs[0].Command != "PRIVMSG" || bobMsgs[0].Params[1] != "hello" {
		t.Errorf("bob should receive the channel PRIVMSG, got %v", bobMsgs)
	}

	aliceMsgs := drainQueued(alice)
	if len(aliceMsgs) != 0 {
		t.Errorf("alice should not see her own PRIVMSG without echo-message, got %v", commandsOf(aliceMsgs))
	}
}

func TestDispatchPrivmsgEchoMessage(t *testing.T) {
	d := newTestDispatchDirectory()
	k1 := MembershipKey("a")
	alice := registerTestClient(d, k1, "203.0.113.1", "alice", "a")
	alice.Capabilities.EchoMessage = true

	bob := addTestClient(d, "b", "203.0.113.2")
	Dispatch(d, "b", irc.Message{Command: "NICK", Params: []string{"bob"}})
	Dispatch(d, "b", irc.Message{Command: "USER", Params: []string{"b", "0", "*", "b"}})
	drainQueued(bob)

	Dispatch(d, k1, irc.Message{Command: "PRIVMSG", Params: []string{"bob", "hi"}})
	bobMsgs := drainQueued(bob)
	if len(bobMsgs) != 1 || bobMsgs[0].Command != "PRIVMSG" {
		t.Fatalf("bob should receive the PRIVMSG, got %v", bobMsgs)
	}

	aliceMsgs := drainQueued(alice)
	if len(aliceMsgs) != 1 || aliceMsgs[0].Command != "PRIVMSG" {
		t.Errorf("alice should see her own PRIVMSG echoed back with echo-message enabled, got %v",
			commandsOf(aliceMsgs))
	}
}

func TestDispatchOperGrantsAndRejectsBadPassword(t *testing.T) {
	d := newTestDispatchDirectory()
	d.Config.Opers = map[string]string{"admin": "hunter2"}
	key := MembershipKey("k1")
	c := registerTestClient(d, key, "203.0.113.1", "alice", "a")

	Dispatch(d, key, irc.Message{Command: "OPER", Params: []string{"admin", "wrong"}})
	msgs := drainQueued(c)
	if len(msgs) != 1 || msgs[0].Command != "464" {
		t.Fatalf("bad oper password should send 464, got %v", commandsOf(msgs))
	}
	if c.Operator {
		t.Fatalf("client should not be an operator after a failed OPER")
	}

	Dispatch(d, key, irc.Message{Command: "OPER", Params: []string{"admin", "hunter2"}})
	msgs = drainQueued(c)
	if len(msgs) != 1 || msgs[0].Command != "381" {
		t.Errorf("successful OPER should send 381, got %v", commandsOf(msgs))
	}
	if !c.Operator {
		t.Errorf("client should be an operator after a correct OPER")
	}

	Dispatch(d, key, irc.Message{Command: "OPER", Params: []string{"admin", "hunter2"}})
	msgs = drainQueued(c)
	if len(msgs) != 1 || msgs[0].Command != "381" {
		t.Errorf("re-OPERing should just report already-an-operator via 381, got %v", commandsOf(msgs))
	}
}

func TestDispatchQuitClosesQueueAndRemovesClient(t *testing.T) {
	d := newTestDispatchDirectory()
	key := MembershipKey("k1")
	c := registerTestClient(d, key, "203.0.113.1", "alice", "a")

	Dispatch(d, key, irc.Message{Command: "QUIT", Params: []string{"bye"}})

	if c.State() != Quit {
		t.Errorf("client state should be Quit after QUIT")
	}

	// QUIT's own "ERROR" reply was queued before the queue was closed, so
	// the first Receive should still return it with ok=true; the queue
	// reports closed only once that backlog is drained.
	msgs, ok := c.Queue().Receive()
	if !ok || len(msgs) != 1 || msgs[0].Command != "ERROR" {
		t.Fatalf("expected to drain the queued ERROR message first, got %v ok=%v", msgs, ok)
	}
	if _, ok := c.Queue().Receive(); ok {
		t.Errorf("queue should report closed (ok=false) once its backlog is drained")
	}

	d.Lock()
	stillThere := d.clientByKey(key)
	d.Unlock()
	if stillThere != nil {
		t.Errorf("QUIT should remove the client from the Directory")
	}
}
