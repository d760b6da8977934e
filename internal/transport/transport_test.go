package transport

import (
	"bytes"
	"testing"
)

func TestDecodeKeysArrows(t *testing.T) {
	cases := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{0x1b, '[', 'A'}, []byte{keyUp}},
		{[]byte{0x1b, '[', 'B'}, []byte{keyDown}},
		{[]byte{0x1b, '[', 'C'}, []byte{keyRight}},
		{[]byte{0x1b, '[', 'D'}, []byte{keyLeft}},
		// autorepeat delivers several sequences in one read
		{[]byte{0x1b, '[', 'D', 0x1b, '[', 'D'}, []byte{keyLeft, keyLeft}},
		// plain keys pass through untouched
		{[]byte("wasd q"), []byte("wasd q")},
		// mixed plain and escape input
		{[]byte{'w', 0x1b, '[', 'A', ' '}, []byte{'w', keyUp, ' '}},
		// unknown CSI letter is swallowed, not misread as keys
		{[]byte{0x1b, '[', 'Z'}, nil},
	}
	for _, tc := range cases {
		if got := decodeKeys(tc.in); !bytes.Equal(got, tc.want) {
			t.Errorf("decodeKeys(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStateTransitions(t *testing.T) {
	var s state
	if s.State() != Disconnected {
		t.Fatalf("zero value = %v, want Disconnected", s.State())
	}
	for _, st := range []State{Connecting, Connected, ReadLoop, Disconnected} {
		s.set(st)
		if s.State() != st {
			t.Errorf("set(%v) then State() = %v", st, s.State())
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		ReadLoop:     "reading",
		Polling:      "polling",
		State(99):    "disconnected",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int32(st), got, want)
		}
	}
}
