// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package control

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
}

// NewMockSource creates a mock control source that sweeps both axes
// smoothly and taps the button periodically.
func NewMockSource() Source {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Next() (Control, error) {
	elapsed := time.Since(m.start).Seconds()

	return Control{
		X:      math.Sin(elapsed),
		Y:      math.Cos(elapsed * 0.7),
		Button: math.Mod(elapsed, 4) < 0.5,
	}, nil
}
