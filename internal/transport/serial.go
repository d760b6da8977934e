package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
	"go.bug.st/serial/enumerator"
)

// USB vendor IDs of the boards this controller firmware ships on:
// genuine Arduino, CH340 clones, FTDI, and CP210x bridges.
var arduinoVendorIDs = []string{"2341", "2A03", "1A86", "0403", "10C4"}

// SerialOptions configure the serial adapter.
type SerialOptions struct {
	// Port is the device path, e.g. /dev/ttyUSB0. Empty means
	// autodetect by USB vendor ID.
	Port string
	// BaudRate defaults to 9600, matching the firmware.
	BaudRate uint
}

// Serial reads CSV lines from a USB-serial joystick at 9600 8N1.
type Serial struct {
	state
	opts SerialOptions
}

// NewSerial returns a serial adapter.
func NewSerial(opts SerialOptions) *Serial {
	if opts.BaudRate == 0 {
		opts.BaudRate = 9600
	}
	return &Serial{opts: opts}
}

func (s *Serial) Name() string { return "serial" }

// Run opens the port and feeds bytes until the context is cancelled or
// the stream fails. A failed read mid-session returns ErrConnectionLost;
// the adapter does not busy-retry, the caller decides whether to
// reconnect or fall back.
func (s *Serial) Run(ctx context.Context, feed FeedFunc) error {
	s.set(Connecting)
	defer s.set(Disconnected)

	name := s.opts.Port
	if name == "" {
		var err error
		name, err = detectPort()
		if err != nil {
			return err
		}
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:        name,
		BaudRate:        s.opts.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrUnavailable, name, err)
	}
	defer port.Close()
	log.Printf("serial: port %s opened at %d baud", name, s.opts.BaudRate)
	s.set(Connected)

	// Close the port when the context ends so the blocking Read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-done:
		}
	}()

	s.set(ReadLoop)
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			if ferr := feed(buf[:n]); ferr != nil {
				log.Printf("serial: feed: %v", ferr)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF {
				return fmt.Errorf("%w: %s closed", ErrConnectionLost, name)
			}
			return fmt.Errorf("%w: read %s: %v", ErrConnectionLost, name, err)
		}
	}
}

// detectPort scans USB serial ports for a known board vendor ID and
// returns the first match.
func detectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("%w: enumerate ports: %v", ErrUnavailable, err)
	}

	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		for _, vid := range arduinoVendorIDs {
			if strings.EqualFold(p.VID, vid) {
				log.Printf("serial: detected %s (VID %s PID %s)", p.Name, p.VID, p.PID)
				return p.Name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no joystick serial port found", ErrUnavailable)
}
