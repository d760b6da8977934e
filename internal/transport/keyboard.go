package transport

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pkg/term"

	"github.com/moreshk/arduino-joystick-racer/internal/control"
	"github.com/moreshk/arduino-joystick-racer/internal/wire"
)

// Keyboard timing. Directions stay deflected for holdWindow after the
// last repeat because a terminal only reports key presses, never
// releases; the window has to outlast the autorepeat initial delay.
const (
	keyboardTick = 20 * time.Millisecond
	holdWindow   = 400 * time.Millisecond
)

// KeyboardOptions configure the keyboard fallback adapter.
type KeyboardOptions struct {
	// Format is the wire format the lines are synthesized in, so the
	// identical decoder path runs for keyboard input.
	Format string
	// Device is the terminal to read, default /dev/tty.
	Device string
	// OnRecalibrate is invoked when the user presses 'c'.
	OnRecalibrate func()
}

// Keyboard simulates the joystick from terminal keys: arrows or WASD
// deflect the axes to their extremes, space holds the button, 'c'
// requests recalibration, 'q' stops the adapter. Each tick it
// synthesizes the same wire line a real device would send, so keyboard
// and analog input are behaviorally identical downstream.
type Keyboard struct {
	state
	opts KeyboardOptions
}

// NewKeyboard returns the keyboard adapter.
func NewKeyboard(opts KeyboardOptions) *Keyboard {
	if opts.Device == "" {
		opts.Device = "/dev/tty"
	}
	return &Keyboard{opts: opts}
}

func (k *Keyboard) Name() string { return "keyboard" }

// Run puts the terminal in raw mode and feeds synthesized lines at a
// fixed cadence until 'q', Ctrl-C, or context cancellation. The terminal
// is always restored on exit.
func (k *Keyboard) Run(ctx context.Context, feed FeedFunc) error {
	k.set(Connecting)
	defer k.set(Disconnected)

	t, err := term.Open(k.opts.Device, term.RawMode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrUnavailable, k.opts.Device, err)
	}
	defer func() {
		t.Restore()
		t.Close()
	}()

	log.Println("keyboard: arrows/WASD steer, space = button, c = recalibrate, q = quit")
	k.set(ReadLoop)

	keys := make(chan byte, 64)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		buf := make([]byte, 16)
		for {
			n, err := t.Read(buf)
			if err != nil {
				return
			}
			for _, b := range decodeKeys(buf[:n]) {
				select {
				case keys <- b:
				default:
				}
			}
		}
	}()

	var (
		lastUp, lastDown, lastLeft, lastRight time.Time
		lastButton                            time.Time
	)

	ticker := time.NewTicker(keyboardTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-readDone:
			return fmt.Errorf("%w: terminal closed", ErrConnectionLost)
		case b := <-keys:
			now := time.Now()
			switch b {
			case 'q', 0x03:
				log.Println("keyboard: quit")
				return nil
			case 'c':
				if k.opts.OnRecalibrate != nil {
					k.opts.OnRecalibrate()
				}
			case 'w', keyUp:
				lastUp = now
			case 's', keyDown:
				lastDown = now
			case 'a', keyLeft:
				lastLeft = now
			case 'd', keyRight:
				lastRight = now
			case ' ':
				lastButton = now
			}
		case <-ticker.C:
			now := time.Now()
			sample := control.RawSample{X: 512, Y: 512}
			if now.Sub(lastLeft) < holdWindow {
				sample.X = 0
			} else if now.Sub(lastRight) < holdWindow {
				sample.X = 1023
			}
			if now.Sub(lastUp) < holdWindow {
				sample.Y = 1023
			} else if now.Sub(lastDown) < holdWindow {
				sample.Y = 0
			}
			sample.Button = now.Sub(lastButton) < holdWindow

			if ferr := feed([]byte(wire.Encode(k.opts.Format, sample))); ferr != nil {
				log.Printf("keyboard: feed: %v", ferr)
			}
		}
	}
}

// Internal markers for decoded arrow keys, chosen outside ASCII so they
// cannot collide with real key bytes.
const (
	keyUp byte = iota + 0x80
	keyDown
	keyRight
	keyLeft
)

// decodeKeys flattens raw terminal bytes, translating ESC [ A..D arrow
// sequences into the single-byte markers above.
func decodeKeys(buf []byte) []byte {
	var out []byte
	for i := 0; i < len(buf); i++ {
		if buf[i] == 0x1b && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A':
				out = append(out, keyUp)
			case 'B':
				out = append(out, keyDown)
			case 'C':
				out = append(out, keyRight)
			case 'D':
				out = append(out, keyLeft)
			}
			i += 2
			continue
		}
		out = append(out, buf[i])
	}
	return out
}
