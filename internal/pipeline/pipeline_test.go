package pipeline

import (
	"math"
	"strings"
	"testing"

	"github.com/moreshk/arduino-joystick-racer/internal/calibration"
	"github.com/moreshk/arduino-joystick-racer/internal/control"
	"github.com/moreshk/arduino-joystick-racer/internal/shape"
	"github.com/moreshk/arduino-joystick-racer/internal/wire"
)

// recorder collects every conditioned event the pipeline emits.
type recorder struct {
	events []control.Control
}

func (r *recorder) handle(c control.Control) {
	r.events = append(r.events, c)
}

func calibrated() *calibration.State {
	st := calibration.Default()
	return &st
}

func newTestController(t *testing.T, opts Options, rec *recorder) *Controller {
	t.Helper()
	c, err := New(opts, rec.handle)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func singleSampleOpts() Options {
	return Options{
		Format: wire.FormatCSV,
		Shape:  shape.Params{Deadzone: 0.15, Gamma: 1.6, Smoothing: 1},
		State:  calibrated(),
	}
}

func TestCenteredSampleEmitsZero(t *testing.T) {
	var rec recorder
	c := newTestController(t, singleSampleOpts(), &rec)

	if err := c.Feed([]byte("512,512,0\n")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want 1", len(rec.events))
	}
	got := rec.events[0]
	if got.X != 0 || got.Y != 0 || got.Button {
		t.Errorf("got %+v, want {0 0 false}", got)
	}
}

func TestFullDeflectionWithButton(t *testing.T) {
	var rec recorder
	c := newTestController(t, singleSampleOpts(), &rec)

	c.Feed([]byte("1023,512,1\n"))
	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want 1", len(rec.events))
	}
	got := rec.events[0]
	if got.X < 0.99 || got.X > 1 {
		t.Errorf("X = %g, want near full deflection", got.X)
	}
	if got.Y != 0 {
		t.Errorf("Y = %g, want 0", got.Y)
	}
	if !got.Button {
		t.Error("button press lost")
	}
}

func TestMalformedLineDroppedStreamContinues(t *testing.T) {
	var rec recorder
	c := newTestController(t, singleSampleOpts(), &rec)

	if err := c.Feed([]byte("abc,def\n")); err != nil {
		t.Fatalf("malformed line must not surface an error, got %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("malformed line must not reach the handler, got %d events", len(rec.events))
	}
	if c.Malformed() != 1 {
		t.Errorf("Malformed() = %d, want 1", c.Malformed())
	}

	c.Feed([]byte("512,512,0\n"))
	if len(rec.events) != 1 {
		t.Fatal("stream must keep working after a dropped line")
	}
}

func TestSplitChunksEmitOneEvent(t *testing.T) {
	var rec recorder
	c := newTestController(t, singleSampleOpts(), &rec)

	c.Feed([]byte("51"))
	if len(rec.events) != 0 {
		t.Fatal("partial line must not emit")
	}
	c.Feed([]byte("2,512,0\n"))
	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want exactly 1", len(rec.events))
	}
}

func TestStartupCalibration(t *testing.T) {
	var rec recorder
	var installed []calibration.State
	opts := Options{
		Format:             wire.FormatCSV,
		Shape:              shape.Params{Deadzone: 0.15, Gamma: 1.6, Smoothing: 1},
		CalibrationSamples: 3,
	}
	c := newTestController(t, opts, &rec)
	c.OnCalibration(func(st calibration.State) { installed = append(installed, st) })

	// rest samples with the stick slightly off-center
	for i := 0; i < 3; i++ {
		c.Feed([]byte("500,524,0\n"))
	}
	if len(rec.events) != 0 {
		t.Fatalf("no shaped output during calibration, got %d events", len(rec.events))
	}
	if len(installed) != 1 {
		t.Fatalf("calibration observer fired %d times, want 1", len(installed))
	}
	st := c.State()
	if !st.Valid || st.CenterX != 500 || st.CenterY != 524 {
		t.Fatalf("state %+v, want valid center (500, 524)", st)
	}

	// the measured rest position now maps to zero
	c.Feed([]byte("500,524,0\n"))
	if len(rec.events) != 1 || rec.events[0].X != 0 || rec.events[0].Y != 0 {
		t.Fatalf("calibrated rest position should emit zero, got %+v", rec.events)
	}
}

func TestStartupCalibrationRejectsDeflection(t *testing.T) {
	var rec recorder
	opts := Options{
		Format:             wire.FormatCSV,
		Shape:              shape.DefaultParams(),
		CalibrationSamples: 2,
	}
	c := newTestController(t, opts, &rec)

	c.Feed([]byte("1023,512,0\n1023,512,0\n"))
	if st := c.State(); st.Valid {
		t.Fatalf("deflected calibration must be invalid, got %+v", st)
	}
	// pipeline stays usable on centered defaults
	c.Feed([]byte("512,512,0\n"))
	if len(rec.events) != 1 || rec.events[0].X != 0 {
		t.Fatalf("defaults should still condition samples, got %+v", rec.events)
	}
}

func TestRecalibrateResetsSmoothing(t *testing.T) {
	var rec recorder
	opts := singleSampleOpts()
	opts.Shape.Smoothing = 4
	c := newTestController(t, opts, &rec)

	// saturate the smoothing window at full deflection
	for i := 0; i < 6; i++ {
		c.Feed([]byte("1023,512,0\n"))
	}

	st := c.Recalibrate(control.RawSample{X: 520, Y: 505})
	if !st.Valid || st.OffsetX != -8 || st.OffsetY != 7 {
		t.Fatalf("recalibrate state %+v, want valid offsets (-8, 7)", st)
	}

	rec.events = nil
	c.Feed([]byte("520,505,0\n"))
	if len(rec.events) != 1 {
		t.Fatal("expected one event after recalibration")
	}
	// a stale window would still average in the old full deflection
	if got := rec.events[0]; got.X != 0 || got.Y != 0 {
		t.Errorf("new center should map to zero immediately, got %+v", got)
	}
}

func TestRequestCalibrationPausesOutput(t *testing.T) {
	var rec recorder
	c := newTestController(t, singleSampleOpts(), &rec)

	c.Feed([]byte("512,512,0\n"))
	rec.events = nil

	c.RequestCalibration(2)
	c.Feed([]byte("508,516,0\n508,516,0\n"))
	if len(rec.events) != 0 {
		t.Fatalf("shaped output must pause during a calibration pass, got %d events", len(rec.events))
	}
	if st := c.State(); st.CenterX != 508 || st.CenterY != 516 {
		t.Fatalf("state %+v, want center (508, 516)", st)
	}
}

func TestOnRawSeesEverySample(t *testing.T) {
	var rec recorder
	var raw []control.RawSample
	c := newTestController(t, singleSampleOpts(), &rec)
	c.OnRaw(func(s control.RawSample) { raw = append(raw, s) })

	c.Feed([]byte("100,900,1\n512,512,0\n"))
	if len(raw) != 2 {
		t.Fatalf("raw observer saw %d samples, want 2", len(raw))
	}
	if raw[0] != (control.RawSample{X: 100, Y: 900, Button: true}) {
		t.Errorf("raw[0] = %+v", raw[0])
	}
}

func TestFeedSurfacesOverflowAndRecovers(t *testing.T) {
	var rec recorder
	c := newTestController(t, singleSampleOpts(), &rec)
	c.framer.MaxLine = 16

	if err := c.Feed([]byte(strings.Repeat("x", 64))); err == nil {
		t.Fatal("runaway line must surface an error")
	}
	if err := c.Feed([]byte("xxx\n512,512,0\n")); err != nil {
		t.Fatalf("stream must recover after overflow: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("got %d events after recovery, want 1", len(rec.events))
	}
}

func TestNMEAFormatEndToEnd(t *testing.T) {
	var rec recorder
	opts := singleSampleOpts()
	opts.Format = wire.FormatNMEA
	c := newTestController(t, opts, &rec)

	c.Feed([]byte(wire.Encode(wire.FormatNMEA, control.RawSample{X: 1023, Y: 512, Button: true})))
	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want 1", len(rec.events))
	}
	if got := rec.events[0]; math.Abs(got.X-1) > 0.01 || !got.Button {
		t.Errorf("got %+v, want near-full X with button", got)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(singleSampleOpts(), nil); err == nil {
		t.Error("nil handler must be rejected")
	}
	bad := singleSampleOpts()
	bad.Shape.Deadzone = 2
	if _, err := New(bad, func(control.Control) {}); err == nil {
		t.Error("invalid shape params must be rejected")
	}
	bad = singleSampleOpts()
	bad.Format = "binary"
	if _, err := New(bad, func(control.Control) {}); err == nil {
		t.Error("unknown wire format must be rejected")
	}
}
