package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("port = %q, want 3000", cfg.Server.Port)
	}
	if cfg.Mongo.Database != "Demeter" {
		t.Errorf("database = %q, want Demeter", cfg.Mongo.Database)
	}
	if cfg.MQTT.Topic != "demeter/devices/#" {
		t.Errorf("topic = %q, want demeter/devices/#", cfg.MQTT.Topic)
	}
	if cfg.Ingest.WriteMode != WriteModeUpsert {
		t.Errorf("write mode = %q, want upsert", cfg.Ingest.WriteMode)
	}
	if cfg.Ingest.MaxSolutionQuantity != 1000 {
		t.Errorf("max quantity = %v, want 1000", cfg.Ingest.MaxSolutionQuantity)
	}
	if cfg.Serial.Enabled {
		t.Error("serial should be disabled by default")
	}
	if cfg.Serial.BaudRate != 9600 {
		t.Errorf("baud = %d, want 9600", cfg.Serial.BaudRate)
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("request timeout = %v, want 15s", cfg.Server.RequestTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("INGEST_WRITE_MODE", "append")
	t.Setenv("BROKER_HOST", "mqtt.internal")
	t.Setenv("BROKER_PORT", "8883")
	t.Setenv("BROKER_TLS", "true")
	t.Setenv("SERIAL_ENABLED", "1")
	t.Setenv("SERIAL_PORT", "/dev/ttyACM0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ingest.WriteMode != WriteModeAppend {
		t.Errorf("write mode = %q, want append", cfg.Ingest.WriteMode)
	}
	if got := cfg.GetMQTTBrokerURL(); got != "tcps://mqtt.internal:8883" {
		t.Errorf("broker url = %q, want tcps://mqtt.internal:8883", got)
	}
	if !cfg.Serial.Enabled || cfg.Serial.Port != "/dev/ttyACM0" {
		t.Errorf("serial config = %+v", cfg.Serial)
	}
}

func TestLoad_RejectsBadWriteMode(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("INGEST_WRITE_MODE", "both")

	if _, err := Load(); err == nil {
		t.Error("expected validation error for bad write mode")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Mongo:  MongoConfig{URI: "mongodb://localhost"},
			Ingest: IngestConfig{WriteMode: WriteModeUpsert, MaxSolutionQuantity: 1000},
			Serial: SerialConfig{BaudRate: 9600},
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg := base()
	cfg.Ingest.MaxSolutionQuantity = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max quantity")
	}

	cfg = base()
	cfg.Serial.Enabled = true
	cfg.Serial.BaudRate = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero baud rate")
	}
}
