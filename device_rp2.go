//go:build rp2040

package main

import "time"

const (
	device    = "pico"
	bootDelay = 2 * time.Second
)
