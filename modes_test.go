package main

import "testing"

func TestUserModeParser(t *testing.T) {
	tests := []struct {
		modes   string
		kinds   []UserModeKind
		adds    []bool
		nErrors int
	}{
		{"+i", []UserModeKind{UserModeInvisible}, []bool{true}, 0},
		{"-i", []UserModeKind{UserModeInvisible}, []bool{false}, 0},
		{"+i-i", []UserModeKind{UserModeInvisible, UserModeInvisible}, []bool{true, false}, 0},
		{"+o", nil, nil, 1},
		{"+z", nil, nil, 1},
		{"", nil, nil, 0},
	}

	for _, test := range tests {
		p := NewUserModeParser(test.modes)
		var kinds []UserModeKind
		var adds []bool
		errs := 0
		for {
			change, err, ok := p.Next()
			if !ok {
				break
			}
			if err != nil {
				errs++
				continue
			}
			kinds = append(kinds, change.Kind)
			adds = append(adds, change.Add)
		}

		if errs != test.nErrors {
			t.Errorf("NewUserModeParser(%s) produced %d errors, wanted %d",
				test.modes, errs, test.nErrors)
		}
		if len(kinds) != len(test.kinds) {
			t.Errorf("NewUserModeParser(%s) produced %d changes, wanted %d",
				test.modes, len(kinds), len(test.kinds))
			continue
		}
		for i := range kinds {
			if kinds[i] != test.kinds[i] || adds[i] != test.adds[i] {
				t.Errorf("NewUserModeParser(%s) change %d = (%v, %v), wanted (%v, %v)",
					test.modes, i, kinds[i], adds[i], test.kinds[i], test.adds[i])
			}
		}
	}
}

func TestChannelModeParserSimpleFlags(t *testing.T) {
	tests := []struct {
		modes string
		kind  ChannelModeKind
		add   bool
	}{
		{"+i", InviteOnly, true},
		{"-i", InviteOnly, false},
		{"+m", Moderated, true},
		{"+n", NoPrivMsgFromOutside, true},
		{"+s", Secret, true},
		{"+t", TopicRestricted, true},
	}

	for _, test := range tests {
		p := NewChannelModeParser(test.modes, nil)
		change, err, ok := p.Next()
		if !ok || err != nil {
			t.Errorf("NewChannelModeParser(%s) failed to parse", test.modes)
			continue
		}
		if change.Kind != test.kind || change.Add != test.add {
			t.Errorf("NewChannelModeParser(%s) = (%v, %v), wanted (%v, %v)",
				test.modes, change.Kind, change.Add, test.kind, test.add)
		}
	}
}

func TestChannelModeParserKeyRequiresParam(t *testing.T) {
	p := NewChannelModeParser("+k", nil)
	_, err, ok := p.Next()
	if !ok {
		t.Fatalf("NewChannelModeParser(+k) with no params should still yield one event")
	}
	if err == nil {
		t.Errorf("NewChannelModeParser(+k) with no params should error, got nil")
	}

	p = NewChannelModeParser("+k", []string{"secret"})
	change, err, ok := p.Next()
	if !ok || err != nil {
		t.Fatalf("NewChannelModeParser(+k, [secret]) should parse cleanly")
	}
	if change.Kind != Key || change.Param != "secret" || !change.HasParam {
		t.Errorf("NewChannelModeParser(+k, [secret]) = %+v, wanted Key/secret", change)
	}
}

func TestChannelModeParserUserLimit(t *testing.T) {
	p := NewChannelModeParser("+l", []string{"10"})
	change, err, ok := p.Next()
	if !ok || err != nil {
		t.Fatalf("NewChannelModeParser(+l, [10]) should parse cleanly")
	}
	if change.Kind != UserLimit || change.Param != "10" {
		t.Errorf("NewChannelModeParser(+l, [10]) = %+v, wanted UserLimit/10", change)
	}

	p = NewChannelModeParser("-l", nil)
	change, err, ok = p.Next()
	if !ok || err != nil {
		t.Fatalf("NewChannelModeParser(-l) should parse cleanly with no param")
	}
	if change.Kind != UserLimit || change.Add {
		t.Errorf("NewChannelModeParser(-l) = %+v, wanted UserLimit/remove", change)
	}
}

func TestChannelModeParserListVsChange(t *testing.T) {
	// b/e/I with no param is a list request; with a param it's a change.
	p := NewChannelModeParser("+b", nil)
	change, _, ok := p.Next()
	if !ok || change.Kind != GetBans {
		t.Errorf("NewChannelModeParser(+b) with no param = %+v, wanted GetBans", change)
	}

	p = NewChannelModeParser("+b", []string{"*!*@example.com"})
	change, _, ok = p.Next()
	if !ok || change.Kind != ChangeBan || change.Param != "*!*@example.com" {
		t.Errorf("NewChannelModeParser(+b, [mask]) = %+v, wanted ChangeBan/mask", change)
	}
}

func TestChannelModeParserOperatorVoiceRequireParam(t *testing.T) {
	for _, modes := range []string{"+o", "+v"} {
		p := NewChannelModeParser(modes, nil)
		_, err, ok := p.Next()
		if !ok || err == nil {
			t.Errorf("NewChannelModeParser(%s) with no param should error", modes)
		}
	}
}

func TestChannelModeParserMultipleSignsAndParams(t *testing.T) {
	p := NewChannelModeParser("+ov-t", []string{"alice", "bob"})

	change, err, ok := p.Next()
	if !ok || err != nil || change.Kind != ChangeOperator || change.Param != "alice" {
		t.Fatalf("first change = %+v, err %v, wanted ChangeOperator/alice", change, err)
	}

	change, err, ok = p.Next()
	if !ok || err != nil || change.Kind != ChangeVoice || change.Param != "bob" {
		t.Fatalf("second change = %+v, err %v, wanted ChangeVoice/bob", change, err)
	}

	change, err, ok = p.Next()
	if !ok || err != nil || change.Kind != TopicRestricted || change.Add {
		t.Fatalf("third change = %+v, err %v, wanted -t", change, err)
	}

	_, _, ok = p.Next()
	if ok {
		t.Fatalf("expected parser exhausted after three changes")
	}
}

func TestIsChannelModeString(t *testing.T) {
	tests := []struct {
		modes string
		valid bool
	}{
		{"+nt", true},
		{"nt", true},
		{"", true},
		{"+z", false},
		// +k with no parameter fails, since ParseChannelModesSimple supplies none.
		{"+k", false},
	}

	for _, test := range tests {
		out := IsChannelModeString(test.modes)
		if out != test.valid {
			t.Errorf("IsChannelModeString(%s) = %v, wanted %v", test.modes, out,
				test.valid)
		}
	}
}
