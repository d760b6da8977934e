package transport

import (
	"context"
	"fmt"
	"log"
	"time"

	"tinygo.org/x/bluetooth"
)

// Nordic UART Service, the de facto serial-over-BLE profile the joystick
// firmware advertises. TX is the peripheral→host characteristic.
const (
	DefaultBLEService = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	DefaultBLETxChar  = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// BLEOptions configure the Bluetooth adapter.
type BLEOptions struct {
	// DeviceName is the advertised local name to scan for.
	DeviceName string
	// ServiceUUID / CharUUID override the NUS defaults.
	ServiceUUID string
	CharUUID    string
	// ConnectTimeout bounds scanning plus connection establishment.
	// Defaults to 3 seconds.
	ConnectTimeout time.Duration
	// PollInterval is the read cadence when the characteristic does not
	// support notifications. Defaults to 50 ms.
	PollInterval time.Duration
}

// BLE reads the same wire lines from a low-energy peripheral, preferring
// characteristic notifications and degrading to fixed-interval polling.
type BLE struct {
	state
	opts BLEOptions
}

// NewBLE returns a Bluetooth LE adapter.
func NewBLE(opts BLEOptions) *BLE {
	if opts.ServiceUUID == "" {
		opts.ServiceUUID = DefaultBLEService
	}
	if opts.CharUUID == "" {
		opts.CharUUID = DefaultBLETxChar
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 3 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	return &BLE{opts: opts}
}

func (b *BLE) Name() string { return "ble" }

// Run scans for the peripheral, connects, and feeds notification (or
// polled) bytes until the context ends. Scan and connect share one
// timeout; exceeding it returns ErrConnectTimeout so the caller can move
// to the next strategy.
func (b *BLE) Run(ctx context.Context, feed FeedFunc) error {
	b.set(Connecting)
	defer b.set(Disconnected)

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("%w: BLE stack: %v", ErrUnavailable, err)
	}

	result, err := b.scan(ctx, adapter)
	if err != nil {
		return err
	}
	log.Printf("ble: found %q at %s", b.opts.DeviceName, result.Address.String())

	device, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", ErrConnectTimeout, result.Address.String(), err)
	}
	defer device.Disconnect()
	b.set(Connected)

	char, err := b.findCharacteristic(device)
	if err != nil {
		return err
	}

	// Notifications land on the BLE stack's goroutine; hand chunks to
	// the single reader loop over a channel so pipeline access stays
	// single-threaded.
	chunks := make(chan []byte, 32)
	if err := char.EnableNotifications(func(buf []byte) {
		c := make([]byte, len(buf))
		copy(c, buf)
		select {
		case chunks <- c:
		default:
			// slow consumer; dropping a chunk beats blocking the stack
		}
	}); err != nil {
		log.Printf("ble: notifications unsupported (%v), falling back to polling", err)
		return b.poll(ctx, char, feed)
	}

	log.Println("ble: subscribed to notifications")
	b.set(ReadLoop)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-chunks:
			if ferr := feed(chunk); ferr != nil {
				log.Printf("ble: feed: %v", ferr)
			}
		}
	}
}

func (b *BLE) scan(ctx context.Context, adapter *bluetooth.Adapter) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		err := adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if r.LocalName() != b.opts.DeviceName {
				return
			}
			a.StopScan()
			select {
			case found <- r:
			default:
			}
		})
		if err != nil {
			scanErr <- err
		}
	}()

	select {
	case r := <-found:
		return r, nil
	case err := <-scanErr:
		return bluetooth.ScanResult{}, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
	case <-time.After(b.opts.ConnectTimeout):
		adapter.StopScan()
		return bluetooth.ScanResult{}, fmt.Errorf("%w: %q not seen within %s",
			ErrConnectTimeout, b.opts.DeviceName, b.opts.ConnectTimeout)
	case <-ctx.Done():
		adapter.StopScan()
		return bluetooth.ScanResult{}, ctx.Err()
	}
}

// findCharacteristic locates the peripheral→host characteristic. No
// usable characteristic means this transport cannot serve at all; the
// caller then falls back so the consumer is never left without input.
func (b *BLE) findCharacteristic(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	var none bluetooth.DeviceCharacteristic

	svcUUID, err := bluetooth.ParseUUID(b.opts.ServiceUUID)
	if err != nil {
		return none, fmt.Errorf("%w: service uuid %q: %v", ErrUnavailable, b.opts.ServiceUUID, err)
	}
	charUUID, err := bluetooth.ParseUUID(b.opts.CharUUID)
	if err != nil {
		return none, fmt.Errorf("%w: characteristic uuid %q: %v", ErrUnavailable, b.opts.CharUUID, err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		return none, fmt.Errorf("%w: service %s not found", ErrUnavailable, b.opts.ServiceUUID)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		return none, fmt.Errorf("%w: characteristic %s not found", ErrUnavailable, b.opts.CharUUID)
	}
	return chars[0], nil
}

// poll reads the characteristic at a fixed interval for peripherals
// without notification support.
func (b *BLE) poll(ctx context.Context, char bluetooth.DeviceCharacteristic, feed FeedFunc) error {
	b.set(Polling)
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := char.Read(buf)
			if err != nil {
				return fmt.Errorf("%w: poll read: %v", ErrConnectionLost, err)
			}
			if n == 0 {
				continue
			}
			if ferr := feed(buf[:n]); ferr != nil {
				log.Printf("ble: feed: %v", ferr)
			}
		}
	}
}
