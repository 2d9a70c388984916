package config

import (
	"testing"
	"time"
)

func TestUpdateFromSkipsUnsetFields(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Overrides())

	want := Default()
	if cfg != want {
		t.Fatalf("empty overrides changed the config: %+v", cfg)
	}
}

func TestUpdateFromOverridesSetFields(t *testing.T) {
	cfg := Default()
	over := Overrides()
	over.Addr = ":9090"
	over.ShutdownTimeout = 10 * time.Second
	cfg.UpdateFrom(over)

	if cfg.Addr != ":9090" || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != Default().LogLevel {
		t.Fatalf("unset field was touched: %+v", cfg)
	}
}

func TestUpdateFromAllowsRedisDBZero(t *testing.T) {
	cfg := Default()
	cfg.RedisDB = 3

	over := Overrides()
	cfg.UpdateFrom(over)
	if cfg.RedisDB != 3 {
		t.Fatalf("unset redis db override changed the value: %d", cfg.RedisDB)
	}

	over.RedisDB = 0
	cfg.UpdateFrom(over)
	if cfg.RedisDB != 0 {
		t.Fatalf("explicit db 0 override was ignored: %d", cfg.RedisDB)
	}
}
