// services/config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"eusama-go/bus"
	"eusama-go/errcode"
	"eusama-go/types"
	"eusama-go/x/util"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "bench" {
			return nil, false
		}
		return []byte(`{
			"site": "lane-2",
			"trace": true,
			"heartbeat": {"interval": 3}
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "bench")
	NewConfigService().Start(ctx, conn)

	// Published before or after we subscribe, retained messages still arrive.
	sub := conn.Subscribe(bus.T(configPrefix, "#"))
	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < 3 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if m.Topic.Len() != 2 || m.Topic.At(0) != configPrefix || !m.Retained {
				t.Fatalf("unexpected message on %v (retained=%v)", m.Topic, m.Retained)
			}
			key, ok := m.Topic.At(1).(string)
			if !ok {
				t.Fatalf("topic key type %T, want string", m.Topic.At(1))
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 retained messages, got %d (%v)", len(got), got)
	}
	if s, ok := got["site"].(string); !ok || s != "lane-2" {
		t.Fatalf("site = %#v", got["site"])
	}
	if v, ok := got["trace"].(bool); !ok || !v {
		t.Fatalf("trace = %#v", got["trace"])
	}
	var hb types.HeartbeatConfig
	if err := util.DecodeJSON(got["heartbeat"], &hb); err != nil || hb.IntervalS != 3 {
		t.Fatalf("heartbeat = %#v (%v)", got["heartbeat"], err)
	}
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	svc := NewConfigService()

	// No device ID in context
	if err := svc.publishConfig(context.Background(), conn); err == nil {
		t.Fatal("expected error for missing device ID, got nil")
	}
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	// Override lookup to simulate absence.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(4)
	conn := b.NewConnection("test-no-config")
	svc := NewConfigService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "unknown-device")
	if err := svc.publishConfig(ctx, conn); err == nil {
		t.Fatal("expected error for missing embedded config, got nil")
	}
}

func TestConfig_PublishConfig_NotAnObject(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(string) ([]byte, bool) { return []byte(`[1, 2]`), true }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	conn := bus.NewBus(4).NewConnection("test-array")
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	err := NewConfigService().publishConfig(ctx, conn)
	if errcode.Of(err) != errcode.InvalidConfig {
		t.Fatalf("err = %v, want invalid_config", err)
	}
}

func TestEmbeddedConfigsDecode(t *testing.T) {
	for _, device := range []string{"pico", "host"} {
		b := bus.NewBus(8)
		conn := b.NewConnection("test-" + device)
		ctx := context.WithValue(context.Background(), CtxDeviceKey, device)
		if err := NewConfigService().publishConfig(ctx, conn); err != nil {
			t.Fatalf("%s: %v", device, err)
		}

		sub := conn.Subscribe(bus.T(configPrefix, "stand"))
		var cfg types.StandConfig
		select {
		case m := <-sub.Channel():
			if err := util.DecodeJSON(m.Payload, &cfg); err != nil {
				t.Fatalf("%s: decode stand: %v", device, err)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s: no stand config", device)
		}
		if cfg.Pins.LEDSelect != [4]int{22, 26, 27, 28} || cfg.EEPROM.Addr != 0x50 {
			t.Fatalf("%s: stand config %+v", device, cfg)
		}

		hb := conn.Subscribe(bus.T(configPrefix, "heartbeat"))
		select {
		case m := <-hb.Channel():
			var h types.HeartbeatConfig
			if err := util.DecodeJSON(m.Payload, &h); err != nil || h.IntervalS <= 0 {
				t.Fatalf("%s: heartbeat %+v (%v)", device, h, err)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s: no heartbeat config", device)
		}
	}
}

func TestParseObject(t *testing.T) {
	m, err := parseObject([]byte(`{"stand": {"settle_ms": 5000}, "heartbeat": {"interval": 2}}`))
	if err != nil {
		t.Fatal(err)
	}
	st, ok := m["stand"].(map[string]any)
	if !ok || st["settle_ms"] != float64(5000) {
		t.Fatalf("stand = %#v", m["stand"])
	}

	if _, err := parseObject([]byte(`"pico"`)); err == nil {
		t.Fatal("expected error for a non-object document")
	}
}
