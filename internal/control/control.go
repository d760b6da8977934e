package control

// RawSample is a single uncalibrated joystick reading as it arrives from
// the device: two 10-bit ADC values and the (already active-high) button.
type RawSample struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Button bool `json:"button"`
}

// Control is the conditioned output of the pipeline. X and Y are in
// [-1, 1] with 0 at the calibrated center; Button passes through.
type Control struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button bool    `json:"button"`
}

// Handler receives each Control as it is produced, one call per parsed
// line, in line order, never concurrently.
type Handler func(Control)

// Source is anything that can provide controls over time: mock source,
// replay source from file, etc.
type Source interface {
	Next() (Control, error)
}
