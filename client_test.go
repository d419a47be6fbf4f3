package main

import "testing"

func TestNewClientFullName(t *testing.T) {
	c := NewClient("203.0.113.1")
	if c.FullName() != "*203.0.113.1" {
		t.Errorf("NewClient fullName = %s, wanted *203.0.113.1 (no separators until SetNick or SetUserReal)",
			c.FullName())
	}
	if c.Nick() != "*" {
		t.Errorf("NewClient nick = %s, wanted *", c.Nick())
	}
}

func TestSetNickUpdatesFullName(t *testing.T) {
	c := NewClient("203.0.113.1")
	c.SetNick("alice")
	if c.Nick() != "alice" {
		t.Errorf("Nick() = %s, wanted alice", c.Nick())
	}
	if c.FullName() != "alice!@203.0.113.1" {
		t.Errorf("FullName() = %s, wanted alice!@203.0.113.1", c.FullName())
	}
}

func TestSetUserRealUpdatesFullName(t *testing.T) {
	c := NewClient("203.0.113.1")
	c.SetNick("alice")
	c.SetUserReal("auser", "Alice Realname")
	if c.FullName() != "alice!auser@203.0.113.1" {
		t.Errorf("FullName() = %s, wanted alice!auser@203.0.113.1", c.FullName())
	}
	if c.User() != "auser" || c.Real() != "Alice Realname" {
		t.Errorf("User()/Real() = %s/%s, wanted auser/Alice Realname", c.User(), c.Real())
	}
}

func TestApplyCommandSetsRegisteredFieldButIsRegisteredIgnoresIt(t *testing.T) {
	c := NewClient("203.0.113.1")

	if c.IsRegistered() {
		t.Fatalf("fresh client should not be registered")
	}

	if _, err := c.ApplyCommand("NICK", ""); err != nil {
		t.Fatalf("NICK should be legal from ConnectionEstablished: %s", err)
	}
	if _, err := c.ApplyCommand("USER", ""); err != nil {
		t.Fatalf("USER should complete registration: %s", err)
	}

	if !c.Registered {
		t.Errorf("Registered field should be set once state reaches Registered")
	}
	if !c.IsRegistered() {
		t.Errorf("IsRegistered() should report true once state reaches Registered")
	}

	// The dead-field quirk from the source this is a port of: IsRegistered
	// consults only c.state, never c.Registered. Clearing the field by hand
	// must not change what IsRegistered reports.
	c.Registered = false
	if !c.IsRegistered() {
		t.Errorf("IsRegistered() should still report true purely from state, ignoring Registered")
	}
}

func TestApplyUserModeChangeInvisible(t *testing.T) {
	c := NewClient("203.0.113.1")

	applied := c.ApplyUserModeChange(UserModeChange{Kind: UserModeInvisible, Add: true})
	if !applied || !c.Invisible {
		t.Fatalf("setting invisible should apply, got applied=%v invisible=%v", applied, c.Invisible)
	}

	applied = c.ApplyUserModeChange(UserModeChange{Kind: UserModeInvisible, Add: true})
	if applied {
		t.Errorf("setting an already-set mode should report applied=false")
	}
}

func TestWriteModesOrder(t *testing.T) {
	c := NewClient("203.0.113.1")
	c.Away = true
	c.Invisible = true
	c.Operator = true
	if got := c.WriteModes(); got != "+aio" {
		t.Errorf("WriteModes() = %s, wanted +aio", got)
	}
}

func TestIdleTimeResets(t *testing.T) {
	c := NewClient("203.0.113.1")
	before := c.IdleTime()
	c.UpdateIdleTime()
	after := c.IdleTime()
	if after > before {
		t.Errorf("UpdateIdleTime should reset the idle clock, got before=%s after=%s", before, after)
	}
}
