// Package hw describes the collaborators the stand needs from a board.
package hw

import (
	"io"
	"sync"

	"eusama-go/canbus"
	"eusama-go/services/stand/internal/actuator"
	"eusama-go/services/stand/internal/calib"
	"eusama-go/services/stand/internal/ledmux"
)

// RawSource returns one raw reading per load cell: 0..3 left, 4..7 right.
type RawSource interface {
	Read(dst *[8]uint16) error
}

// Input is a digital input such as the top-position sensor.
type Input interface {
	Get() bool
}

// Board is the set of devices a platform factory hands to the stand.
// Nil members are tolerated where the stand can run without them.
type Board struct {
	Name    string
	Source  RawSource
	Store   calib.Store
	Outputs actuator.Outputs
	Top     Input
	LEDs    ledmux.Driver
	// Gate serializes command application against the calibration flush.
	Gate sync.Locker
	CAN  canbus.Bus
	// Console receives one diagnostic line per second when set.
	Console io.Writer
}

// Close releases the CAN transport.
func (b *Board) Close() error {
	if b.CAN == nil {
		return nil
	}
	return b.CAN.Close()
}
