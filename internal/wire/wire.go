package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

// ErrMalformed marks a line that failed to decode. The pipeline logs and
// drops these; a single bad line never reaches the consumer or stops the
// stream.
var ErrMalformed = errors.New("wire: malformed line")

// Supported line formats.
const (
	FormatCSV  = "csv"  // X,Y,B
	FormatNMEA = "nmea" // $ARJOY,X,Y,B*hh with checksum
)

// Decoder turns one complete wire line into a raw sample.
type Decoder interface {
	Decode(line string) (control.RawSample, error)
}

// NewDecoder selects a decoder by config format name.
func NewDecoder(format string) (Decoder, error) {
	switch format {
	case FormatCSV, "":
		return csvDecoder{}, nil
	case FormatNMEA:
		return newNMEADecoder(), nil
	default:
		return nil, fmt.Errorf("wire: unknown format %q", format)
	}
}

// csvDecoder parses the plain firmware format: "X,Y,B" with X, Y decimal
// integers in [0, 1023] and B in {0, 1}. The button is already inverted
// from the active-low hardware read, so 1 means pressed.
type csvDecoder struct{}

func (csvDecoder) Decode(line string) (control.RawSample, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return control.RawSample{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return control.RawSample{}, fmt.Errorf("%w: %d fields in %q", ErrMalformed, len(fields), line)
	}

	x, err := parseAxis(fields[0])
	if err != nil {
		return control.RawSample{}, fmt.Errorf("%w: x in %q: %v", ErrMalformed, line, err)
	}
	y, err := parseAxis(fields[1])
	if err != nil {
		return control.RawSample{}, fmt.Errorf("%w: y in %q: %v", ErrMalformed, line, err)
	}
	button, err := parseButton(fields[2])
	if err != nil {
		return control.RawSample{}, fmt.Errorf("%w: button in %q: %v", ErrMalformed, line, err)
	}

	return control.RawSample{X: x, Y: y, Button: button}, nil
}

func parseAxis(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 1023 {
		return 0, fmt.Errorf("value %d outside 10-bit range", v)
	}
	return v, nil
}

func parseButton(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("button %q not 0/1", s)
	}
}
