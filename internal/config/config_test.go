package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "laundry-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "laundry-auth")
	}
	if cfg.JWTAudience != "laundry-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "laundry-api")
	}
	if cfg.StaffSessionCookie != "laundry_session" {
		t.Errorf("StaffSessionCookie = %q, want laundry_session", cfg.StaffSessionCookie)
	}
	if cfg.PortalSessionCookie != "portal_session" {
		t.Errorf("PortalSessionCookie = %q, want portal_session", cfg.PortalSessionCookie)
	}
	if cfg.PortalSessionBackend != PortalBackendPostgres {
		t.Errorf("PortalSessionBackend = %q, want postgres", cfg.PortalSessionBackend)
	}
	if cfg.DeliveryEventsTopic != "delivery-events" {
		t.Errorf("DeliveryEventsTopic = %q, want delivery-events", cfg.DeliveryEventsTopic)
	}
	if cfg.CatchUpHistoryLimit != 50 {
		t.Errorf("CatchUpHistoryLimit = %d, want 50", cfg.CatchUpHistoryLimit)
	}
	if cfg.SendBufferSize != 64 {
		t.Errorf("SendBufferSize = %d, want 64", cfg.SendBufferSize)
	}
	if cfg.AssumedSpeedKph != 25 {
		t.Errorf("AssumedSpeedKph = %v, want 25", cfg.AssumedSpeedKph)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("SEND_BUFFER_SIZE", "8")
	os.Setenv("PORTAL_SESSION_BACKEND", "Memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.SendBufferSize != 8 {
		t.Errorf("SendBufferSize = %d, want 8", cfg.SendBufferSize)
	}
	if cfg.PortalSessionBackend != PortalBackendMemory {
		t.Errorf("PortalSessionBackend = %q, want memory", cfg.PortalSessionBackend)
	}
}

func TestLoad_PortalBackendValidation(t *testing.T) {
	testCases := []struct {
		name    string
		backend string
		redis   string
		wantErr bool
	}{
		{"postgres", "postgres", "", false},
		{"memory", "memory", "", false},
		{"redis with addr", "redis", "localhost:6379", false},
		{"redis without addr", "redis", "", true},
		{"unknown", "dynamo", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("PORTAL_SESSION_BACKEND", tc.backend)
			if tc.redis != "" {
				os.Setenv("REDIS_ADDR", tc.redis)
			}
			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("Load should return error")
				}
				if cfg != nil {
					t.Error("Load should return nil config on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
		})
	}
}

func TestLoad_SendBufferSizeMustBePositive(t *testing.T) {
	os.Clearenv()
	os.Setenv("SEND_BUFFER_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject SEND_BUFFER_SIZE=0")
	}
}

func TestAccessTTL(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"invalid", 12 * time.Hour},
		{"-1h", 12 * time.Hour},
	}
	for _, tc := range testCases {
		cfg := &Config{JWTAccessTTL: tc.value}
		if got := cfg.AccessTTL(); got != tc.want {
			t.Errorf("AccessTTL(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestWriteTimeout(t *testing.T) {
	if got := (&Config{WSWriteTimeout: "3s"}).WriteTimeout(); got != 3*time.Second {
		t.Errorf("WriteTimeout = %v, want 3s", got)
	}
	if got := (&Config{WSWriteTimeout: ""}).WriteTimeout(); got != 10*time.Second {
		t.Errorf("WriteTimeout default = %v, want 10s", got)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name    string
		brokers string
		want    []string
	}{
		{"empty", "", nil},
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"multiple with spaces", " a:9092 , b:9092,,", []string{"a:9092", "b:9092"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{KafkaBrokers: tc.brokers}
			got := cfg.KafkaBrokersList()
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("KafkaBrokersList = %v, want %v", got, tc.want)
			}
		})
	}
	var nilCfg *Config
	if got := nilCfg.KafkaBrokersList(); got != nil {
		t.Errorf("nil config KafkaBrokersList = %v, want nil", got)
	}
}
