package config

import (
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Preview.MaxRows != 10 || cfg.Preview.PrefixBytes != 204800 || cfg.Preview.MaxSampleEmails != 10 {
		t.Errorf("Preview = %+v", cfg.Preview)
	}
	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Errorf("Session.IdleTTL = %v, want 30m", cfg.Session.IdleTTL)
	}
	if cfg.Session.MaxConcurrentLoads != 8 {
		t.Errorf("Session.MaxConcurrentLoads = %d, want 8", cfg.Session.MaxConcurrentLoads)
	}
	if cfg.Upload.MaxFileSize != 104857600 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 104857600)
	}
	if cfg.Security.APIKeys != nil {
		t.Errorf("Security.APIKeys = %v, want nil", cfg.Security.APIKeys)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SERVER_PORT":          "9090",
		"PREVIEW_MAX_ROWS":     "25",
		"SESSION_IDLE_TTL":     "2h",
		"RATE_LIMIT_ENABLED":   "false",
		"LOG_LEVEL":            "debug",
		"API_KEYS":             " k1 , ,k2",
		"STORE_DRIVER":         "sqlite",
		"SQLITE_PATH":          "/tmp/m.db",
		"PREVIEW_PREFIX_BYTES": "1024",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Preview.MaxRows != 25 {
		t.Errorf("Preview.MaxRows = %d, want 25", cfg.Preview.MaxRows)
	}
	if cfg.Preview.PrefixBytes != 1024 {
		t.Errorf("Preview.PrefixBytes = %d, want 1024", cfg.Preview.PrefixBytes)
	}
	if cfg.Session.IdleTTL != 2*time.Hour {
		t.Errorf("Session.IdleTTL = %v, want 2h", cfg.Session.IdleTTL)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled = true, want false")
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[0] != "k1" || cfg.Security.APIKeys[1] != "k2" {
		t.Errorf("Security.APIKeys = %q", cfg.Security.APIKeys)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.SQLitePath != "/tmp/m.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"STORE_DRIVER": "postgres",
		"DB_URL":       "postgres://localhost/alttest",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Store.DatabaseURL != "postgres://localhost/alttest" {
		t.Errorf("Store.DatabaseURL = %q", cfg.Store.DatabaseURL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{name: "bad integer", vars: map[string]string{"SERVER_PORT": "eighty"}, wantErr: "SERVER_PORT"},
		{name: "bad duration", vars: map[string]string{"SESSION_IDLE_TTL": "soon"}, wantErr: "invalid duration"},
		{name: "bad bool", vars: map[string]string{"RATE_LIMIT_ENABLED": "maybe"}, wantErr: "invalid boolean"},
		{name: "port out of range", vars: map[string]string{"SERVER_PORT": "70000"}, wantErr: "SERVER_PORT"},
		{name: "unknown driver", vars: map[string]string{"STORE_DRIVER": "mongo"}, wantErr: "STORE_DRIVER"},
		{name: "postgres without url", vars: map[string]string{"STORE_DRIVER": "postgres"}, wantErr: "DATABASE_URL"},
		{name: "bad email regex", vars: map[string]string{"PREVIEW_EMAIL_PATTERN": "(["}, wantErr: "PREVIEW_EMAIL_PATTERN"},
		{name: "zero preview rows", vars: map[string]string{"PREVIEW_MAX_ROWS": "-1"}, wantErr: "PREVIEW_MAX_ROWS"},
		{name: "api key required but missing", vars: map[string]string{"REQUIRE_API_KEY": "true"}, wantErr: "API_KEYS"},
		{name: "bad log level", vars: map[string]string{"LOG_LEVEL": "loud"}, wantErr: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(env(tt.vars))
			if err == nil {
				t.Fatal("LoadFrom() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 0
	cfg.Session.LoadWait = 0
	cfg.Logging.Format = "xml"

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"SERVER_PORT", "SESSION_LOAD_WAIT", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestPreviewConfig_Core(t *testing.T) {
	p := PreviewConfig{MaxRows: 5, PrefixBytes: 100, MaxSampleEmails: 3, EmailPattern: `@corp\.example$`}
	got, err := p.Core()
	if err != nil {
		t.Fatalf("Core() error = %v", err)
	}
	if got.MaxPreviewRows != 5 || got.PrefixBytes != 100 || got.MaxSampleEmails != 3 {
		t.Errorf("Core() = %+v", got)
	}
	if !got.Patterns.IsEmail("a@corp.example") || got.Patterns.IsEmail("a@b.com") {
		t.Error("custom email pattern not applied")
	}
	if got.Patterns.HeaderLabel != nil {
		t.Error("empty header pattern should stay nil for the default")
	}

	if _, err := (PreviewConfig{HeaderPattern: "("}).Core(); err == nil {
		t.Error("Core() accepted an invalid pattern")
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
	s.Host = ""
	if got := s.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"STORE_DRIVER":    "postgres",
		"DATABASE_URL":    "postgres://user:hunter2@db/x",
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "secret-key",
	}))
	if err != nil {
		t.Fatal(err)
	}
	s := cfg.String()
	if strings.Contains(s, "hunter2") || strings.Contains(s, "secret-key") {
		t.Errorf("String() leaks secrets: %s", s)
	}
}
