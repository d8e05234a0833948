// Package plaus checks that the four load cells of one plate side agree.
package plaus

import "eusama-go/x/mathx"

// MinSum is the group total below which a side is considered unloaded or
// disconnected.
const MinSum = 10

type Result bool

const (
	Pass Result = false
	Fail Result = true
)

func (r Result) String() string {
	if r == Fail {
		return "fail"
	}
	return "pass"
}

// Evaluate fails a group whose total is below MinSum or whose spread is at
// least a quarter of the total.
func Evaluate(w [4]uint16) Result {
	sum := mathx.SumU32(w[:])
	if sum < MinSum {
		return Fail
	}
	lo, hi := mathx.Span(w[:])
	if 4*uint32(hi-lo) >= sum {
		return Fail
	}
	return Pass
}

// Sides evaluates weights 0..3 (left) and 4..7 (right).
func Sides(w *[8]uint16) (left, right Result) {
	return Evaluate([4]uint16{w[0], w[1], w[2], w[3]}),
		Evaluate([4]uint16{w[4], w[5], w[6], w[7]})
}
