package wire

import (
	"fmt"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/moreshk/arduino-joystick-racer/internal/control"
)

// Firmware built for noisy links (long USB runs, BLE bridges) wraps the
// sample in an NMEA-style sentence so every line carries a checksum:
//
//	$ARJOY,512,512,0*53
//
// Talker "AR" (Arduino), sentence type "JOY", same three fields as the
// CSV format.

const joyType = "JOY"

// JOY is the parsed joystick sentence.
type JOY struct {
	nmea.BaseSentence
	X      int64
	Y      int64
	Button int64
}

var registerOnce sync.Once

func registerJOY() {
	nmea.MustRegisterParser(joyType, func(s nmea.BaseSentence) (nmea.Sentence, error) {
		p := nmea.NewParser(s)
		return JOY{
			BaseSentence: s,
			X:            p.Int64(0, "x"),
			Y:            p.Int64(1, "y"),
			Button:       p.Int64(2, "button"),
		}, p.Err()
	})
}

type nmeaDecoder struct{}

func newNMEADecoder() Decoder {
	registerOnce.Do(registerJOY)
	return nmeaDecoder{}
}

func (nmeaDecoder) Decode(line string) (control.RawSample, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return control.RawSample{}, fmt.Errorf("%w: not a sentence: %q", ErrMalformed, line)
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// covers bad checksums as well as structural garbage
		return control.RawSample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	joy, ok := sentence.(JOY)
	if !ok {
		return control.RawSample{}, fmt.Errorf("%w: unexpected sentence type %s", ErrMalformed, sentence.DataType())
	}

	if joy.X < 0 || joy.X > 1023 || joy.Y < 0 || joy.Y > 1023 {
		return control.RawSample{}, fmt.Errorf("%w: axes (%d, %d) outside 10-bit range", ErrMalformed, joy.X, joy.Y)
	}
	if joy.Button != 0 && joy.Button != 1 {
		return control.RawSample{}, fmt.Errorf("%w: button %d not 0/1", ErrMalformed, joy.Button)
	}

	return control.RawSample{
		X:      int(joy.X),
		Y:      int(joy.Y),
		Button: joy.Button == 1,
	}, nil
}

// Encode renders a raw sample as a checksummed JOY sentence, used by the
// keyboard and ADC adapters so every transport feeds the pipeline through
// the same wire path.
func Encode(format string, s control.RawSample) string {
	b := 0
	if s.Button {
		b = 1
	}
	body := fmt.Sprintf("%d,%d,%d", s.X, s.Y, b)
	if format != FormatNMEA {
		return body + "\n"
	}
	payload := fmt.Sprintf("ARJOY,%s", body)
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\n", payload, sum)
}
