package types

import "eusama-go/x/mathx"

// ------------------------
// Stand configuration (topic "config/stand")
// ------------------------

type StandConfig struct {
	// Tick periods. Zero selects 1 ms / 10 ms.
	FastPeriodUs int `json:"fast_period_us,omitempty"`
	SlowPeriodMs int `json:"slow_period_ms,omitempty"`

	// Startup offset calibration.
	SettleMs      int `json:"settle_ms"`
	OffsetSamples int `json:"offset_samples"`

	// Upper bound for one outbound frame to find a free lane.
	LaneTimeoutMs int `json:"lane_timeout_ms"`

	CAN     CANConfig     `json:"can"`
	ADC     ADCConfig     `json:"adc"`
	EEPROM  EEPROMConfig  `json:"eeprom"`
	Pins    StandPins     `json:"pins"`
	Console ConsoleConfig `json:"console"`
}

type CANConfig struct {
	BitrateKbps int  `json:"bitrate_kbps"`
	ClockMHz    int  `json:"clock_mhz"`
	CS          int  `json:"cs"`
	INT         int  `json:"int"`
	Trace       bool `json:"trace,omitempty"`
	// TraceDMS adds the periodic weight frames to the trace.
	TraceDMS bool `json:"trace_dms,omitempty"`
}

// ADCConfig describes the two 4-channel converters (left: channels 0..3,
// right: 4..7) sharing one SPI bus.
type ADCConfig struct {
	Bus     string `json:"bus"` // "spi0"
	Hz      uint32 `json:"hz"`
	CSLeft  int    `json:"cs_left"`
	CSRight int    `json:"cs_right"`
}

type EEPROMConfig struct {
	Bus      string `json:"bus"` // "i2c0"
	Addr     uint16 `json:"addr"`
	Offset   int64  `json:"offset"`
	PageSize uint16 `json:"page_size"`
	Size     uint32 `json:"size"`
}

type StandPins struct {
	MotorLeft  int `json:"motor_left"`
	MotorRight int `json:"motor_right"`
	LampLeft   int `json:"lamp_left"`
	LampEntry  int `json:"lamp_entry"`
	LampRight  int `json:"lamp_right"`
	Top        int `json:"top"`
	// LED multiplexer: 4 select lines (LSB first) and an active-low enable.
	LEDSelect [4]int `json:"led_select"`
	LEDEnable int    `json:"led_enable"`
}

type ConsoleConfig struct {
	UART   string `json:"uart"` // "uart0"
	Baud   uint32 `json:"baud"`
	TX     int    `json:"tx"`
	RX     int    `json:"rx"`
	Parity Parity `json:"parity,omitempty"`
}

// Upper bounds applied by WithDefaults.
const (
	MaxSettleMs      = 60_000
	MaxOffsetSamples = 10_000
	MaxLaneTimeoutMs = 1_000
)

// WithDefaults fills unset timing fields and bounds the startup and lane
// timings.
func (c StandConfig) WithDefaults() StandConfig {
	if c.FastPeriodUs <= 0 {
		c.FastPeriodUs = 1000
	}
	if c.SlowPeriodMs <= 0 {
		c.SlowPeriodMs = 10
	}
	c.SettleMs = mathx.Clamp(c.SettleMs, 0, MaxSettleMs)
	c.OffsetSamples = mathx.Clamp(c.OffsetSamples, 0, MaxOffsetSamples)
	if c.LaneTimeoutMs <= 0 {
		c.LaneTimeoutMs = 5
	}
	c.LaneTimeoutMs = mathx.Clamp(c.LaneTimeoutMs, 1, MaxLaneTimeoutMs)
	if c.CAN.BitrateKbps <= 0 {
		c.CAN.BitrateKbps = 1000
	}
	if c.CAN.ClockMHz <= 0 {
		c.CAN.ClockMHz = 8
	}
	if c.Console.Baud == 0 {
		c.Console.Baud = 115200
	}
	return c
}

// ------------------------
// Stand state (retained on "stand/state")
// ------------------------

type StandState struct {
	T10ms     uint32    `json:"t10ms"`
	Weights   [8]uint16 `json:"weights"`
	Offsets   [8]uint16 `json:"offsets"`
	LeftFail  bool      `json:"left_fail"`
	RightFail bool      `json:"right_fail"`
	Motors    uint8     `json:"motors"`
	MotorSecs uint8     `json:"motor_secs"`
	Lamp      uint8     `json:"lamp"`
	Top       bool      `json:"top"`
	Dirty     bool      `json:"dirty"`
	LEDs      uint16    `json:"leds"`

	FramesApplied uint32 `json:"frames_applied"`
	FramesDropped uint32 `json:"frames_dropped"`
	Sent          uint32 `json:"sent"`
	SendFailed    uint32 `json:"send_failed"`
	ReadErrors    uint32 `json:"read_errors"`
	FastOverruns  uint32 `json:"fast_overruns"`
	SlowOverruns  uint32 `json:"slow_overruns"`
}

// HeartbeatConfig is published on "config/heartbeat".
type HeartbeatConfig struct {
	IntervalS int `json:"interval"`
}
