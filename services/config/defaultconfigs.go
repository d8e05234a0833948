package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "stand": {
    "settle_ms": 5000,
    "offset_samples": 1000,
    "lane_timeout_ms": 5,
    "can": {"bitrate_kbps": 1000, "clock_mhz": 8, "cs": 13, "int": 14},
    "adc": {"bus": "spi0", "hz": 1000000, "cs_left": 17, "cs_right": 20},
    "eeprom": {"bus": "i2c0", "addr": 80, "offset": 0, "page_size": 32, "size": 4096},
    "pins": {
      "motor_left": 6, "motor_right": 7,
      "lamp_left": 8, "lamp_entry": 9, "lamp_right": 15,
      "top": 21,
      "led_select": [22, 26, 27, 28],
      "led_enable": 3
    },
    "console": {"uart": "uart0", "baud": 115200, "tx": 0, "rx": 1}
  },
  "heartbeat": {
      "interval": 2
  }
}`

const cfgHost = `{
  "stand": {
    "settle_ms": 0,
    "offset_samples": 10,
    "eeprom": {"addr": 80, "page_size": 32, "size": 4096},
    "pins": {
      "motor_left": 6, "motor_right": 7,
      "lamp_left": 8, "lamp_entry": 9, "lamp_right": 15,
      "top": 21,
      "led_select": [22, 26, 27, 28],
      "led_enable": 3
    }
  },
  "heartbeat": {
      "interval": 5
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
