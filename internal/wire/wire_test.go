package wire

import (
	"errors"
	"strings"
	"testing"

	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

func TestCSVDecode(t *testing.T) {
	d, err := NewDecoder(FormatCSV)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	cases := []struct {
		line string
		want control.RawSample
	}{
		{"512,512,0", control.RawSample{X: 512, Y: 512}},
		{"0,1023,1", control.RawSample{X: 0, Y: 1023, Button: true}},
		{"  512 , 300 , 0  ", control.RawSample{X: 512, Y: 300}},
	}
	for _, tc := range cases {
		got, err := d.Decode(tc.line)
		if err != nil {
			t.Errorf("Decode(%q): %v", tc.line, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Decode(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestCSVDecodeMalformed(t *testing.T) {
	d, _ := NewDecoder(FormatCSV)

	lines := []string{
		"",
		"abc,def",
		"abc,def,1",
		"512,512",
		"512,512,0,7",
		"1024,512,0",
		"512,-1,0",
		"512,512,2",
	}
	for _, line := range lines {
		_, err := d.Decode(line)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) = %v, want ErrMalformed", line, err)
		}
	}
}

func TestNMEADecode(t *testing.T) {
	d, err := NewDecoder(FormatNMEA)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	got, err := d.Decode("$ARJOY,512,512,0*53")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != (control.RawSample{X: 512, Y: 512}) {
		t.Fatalf("got %+v, want centered sample", got)
	}
}

func TestNMEARejectsBadChecksum(t *testing.T) {
	d, _ := NewDecoder(FormatNMEA)
	_, err := d.Decode("$ARJOY,512,512,0*00")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("bad checksum: got %v, want ErrMalformed", err)
	}
}

func TestNMEARejectsCorruptPayload(t *testing.T) {
	d, _ := NewDecoder(FormatNMEA)

	// flip a digit after the checksum was computed, as line noise would
	line := strings.TrimSpace(Encode(FormatNMEA, control.RawSample{X: 512, Y: 512}))
	line = strings.Replace(line, "512", "513", 1)
	if _, err := d.Decode(line); !errors.Is(err, ErrMalformed) {
		t.Fatalf("corrupt payload: got %v, want ErrMalformed", err)
	}
}

func TestNMEARejectsNonSentence(t *testing.T) {
	d, _ := NewDecoder(FormatNMEA)
	if _, err := d.Decode("512,512,0"); !errors.Is(err, ErrMalformed) {
		t.Fatal("csv line on nmea decoder should be malformed")
	}
}

func TestNMEARejectsOutOfRange(t *testing.T) {
	d, _ := NewDecoder(FormatNMEA)

	// valid checksum, impossible axis value
	line := strings.TrimSpace(Encode(FormatNMEA, control.RawSample{X: 2000, Y: 512}))
	if _, err := d.Decode(line); !errors.Is(err, ErrMalformed) {
		t.Fatalf("out-of-range axis: got %v, want ErrMalformed", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := []control.RawSample{
		{X: 512, Y: 512},
		{X: 0, Y: 1023, Button: true},
		{X: 317, Y: 845},
	}
	for _, format := range []string{FormatCSV, FormatNMEA} {
		d, err := NewDecoder(format)
		if err != nil {
			t.Fatalf("NewDecoder(%s): %v", format, err)
		}
		for _, s := range samples {
			line := Encode(format, s)
			if !strings.HasSuffix(line, "\n") {
				t.Fatalf("%s: Encode must terminate the line", format)
			}
			got, err := d.Decode(strings.TrimSpace(line))
			if err != nil {
				t.Errorf("%s: decode of %q: %v", format, line, err)
				continue
			}
			if got != s {
				t.Errorf("%s: round trip %+v -> %q -> %+v", format, s, line, got)
			}
		}
	}
}

func TestNewDecoderUnknownFormat(t *testing.T) {
	if _, err := NewDecoder("binary"); err == nil {
		t.Fatal("unknown format must be rejected")
	}
	// empty format defaults to csv
	if _, err := NewDecoder(""); err != nil {
		t.Fatalf("empty format: %v", err)
	}
}
