// Package ledmux scans a 16-bit LED mask onto multiplexed indicator LEDs,
// one position per call to Step.
package ledmux

// Driver lights or darkens one multiplexed position.
type Driver interface {
	Drive(pos uint8, on bool)
}

const Positions = 16

// Indicator patterns.
const (
	LeftFail  uint16 = 0x000f
	LeftPass  uint16 = 0x00f0
	RightFail uint16 = 0x0f00
	RightPass uint16 = 0xf000
	// Startup marks table load in progress.
	Startup uint16 = 0x0001
	// Measuring is lit when the measurement loop starts.
	Measuring uint16 = 0xff00
)

// Pattern returns the plausibility indication for both sides.
func Pattern(leftFail, rightFail bool) uint16 {
	var m uint16
	if leftFail {
		m |= LeftFail
	} else {
		m |= LeftPass
	}
	if rightFail {
		m |= RightFail
	} else {
		m |= RightPass
	}
	return m
}

// Mux is owned by the loop goroutine.
type Mux struct {
	drv  Driver
	mask uint16
	pos  uint8
}

func New(drv Driver) *Mux { return &Mux{drv: drv} }

func (m *Mux) Set(mask uint16) { m.mask = mask }
func (m *Mux) Mask() uint16    { return m.mask }

// Step drives the current position and advances to the next.
func (m *Mux) Step() {
	if m.drv != nil {
		m.drv.Drive(m.pos, m.mask&(1<<m.pos) != 0)
	}
	m.pos = (m.pos + 1) % Positions
}

// Blank darkens the matrix before a long blocking step. The scan resumes
// at the same position on the next Step.
func (m *Mux) Blank() {
	if m.drv != nil {
		m.drv.Drive(m.pos, false)
	}
}
