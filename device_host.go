//go:build !rp2040

package main

import "time"

const (
	device    = "host"
	bootDelay = time.Duration(0)
)
