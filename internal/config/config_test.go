package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadNonExistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
	if cfg.ControllerURL != "" || cfg.FilePath() != path {
		t.Errorf("expected empty config bound to %s, got %+v", path, cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unifi_config.json")
	content := `{
    "controller_url": "https://10.0.0.1",
    "username": "admin",
    "password": "hunter2",
    "site": "home",
    "debug": true,
    "timeout": 5,
    "notify": true
}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ControllerURL != "https://10.0.0.1" || cfg.Username != "admin" || cfg.Password != "hunter2" {
		t.Errorf("unexpected connection fields: %+v", cfg)
	}
	if cfg.Site != "home" || !cfg.Debug || cfg.Timeout != 5 || !cfg.Notify {
		t.Errorf("unexpected optional fields: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "controller_url: https://10.0.0.1\nusername: admin\nverify_tls: true\nca_cert: /etc/ssl/unifi.pem\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ControllerURL != "https://10.0.0.1" || !cfg.VerifyTLS || cfg.CACert != "/etc/ssl/unifi.pem" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "unifi_config.json")

	if err := WriteTemplate(path); err != nil {
		t.Fatalf("WriteTemplate() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read template: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("template is not valid JSON: %v", err)
	}

	want := map[string]any{
		"controller_url": "https://192.168.1.1",
		"username":       "admin",
		"password":       "your_password_here",
		"site":           "default",
		"debug":          false,
	}
	if len(raw) != len(want) {
		t.Errorf("template has %d keys, want %d: %v", len(raw), len(want), raw)
	}
	for k, v := range want {
		if raw[k] != v {
			t.Errorf("template[%q] = %v, want %v", k, raw[k], v)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("template permissions = %o, want 600", perm)
	}
}

func TestWriteTemplateYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := WriteTemplate(path); err != nil {
		t.Fatalf("WriteTemplate() failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "controller_url: https://192.168.1.1") {
		t.Errorf("expected YAML output, got:\n%s", data)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Username != "admin" || cfg.Site != "default" {
		t.Errorf("unexpected round trip: %+v", cfg)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := (&Config{}).Save(); err == nil {
		t.Error("expected error when saving without a path")
	}
}

func TestResolve(t *testing.T) {
	cfg := &Config{
		ControllerURL: "https://file.example",
		Username:      "file-user",
		Password:      "file-pass",
		Site:          "file-site",
		Timeout:       7,
		Notify:        true,
		LogFormat:     "json",
		LogLevel:      "warn",
	}

	env := map[string]string{
		EnvUsername: "env-user",
		EnvSite:     "env-site",
	}
	getenv := func(k string) string { return env[k] }

	s := Resolve(cfg, Overrides{Site: "flag-site", Debug: true}, getenv)

	if s.ControllerURL != "https://file.example" {
		t.Errorf("ControllerURL = %q, want file value", s.ControllerURL)
	}
	if s.Username != "env-user" {
		t.Errorf("Username = %q, want env value", s.Username)
	}
	if s.Password != "file-pass" {
		t.Errorf("Password = %q, want file value", s.Password)
	}
	if s.Site != "flag-site" {
		t.Errorf("Site = %q, want flag value", s.Site)
	}
	if !s.Debug {
		t.Error("Debug should be set by flag")
	}
	if s.Timeout != 7*time.Second || !s.Notify {
		t.Errorf("unexpected optional settings: %+v", s)
	}
	if s.LogFormat != "json" || s.LogLevel != "warn" {
		t.Errorf("log settings = %q/%q, want json/warn", s.LogFormat, s.LogLevel)
	}
}

func TestResolve_Defaults(t *testing.T) {
	s := Resolve(nil, Overrides{}, nil)
	if s.Site != DefaultSite {
		t.Errorf("Site = %q, want %q", s.Site, DefaultSite)
	}
	if s.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (client default)", s.Timeout)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  error
	}{
		{
			name:     "complete",
			settings: Settings{ControllerURL: "https://192.168.1.1", Username: "admin", Password: "x"},
		},
		{
			name:     "missing everything",
			settings: Settings{},
			wantErr:  ErrMissingParams,
		},
		{
			name:     "missing password",
			settings: Settings{ControllerURL: "https://192.168.1.1", Username: "admin"},
			wantErr:  ErrMissingParams,
		},
		{
			name:     "bad scheme",
			settings: Settings{ControllerURL: "ftp://192.168.1.1", Username: "admin", Password: "x"},
			wantErr:  ErrInvalidAddress,
		},
		{
			name:     "no host",
			settings: Settings{ControllerURL: "https://", Username: "admin", Password: "x"},
			wantErr:  ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsMissing(t *testing.T) {
	got := Settings{Username: "admin"}.Missing()
	if strings.Join(got, ",") != "controller_url,password" {
		t.Errorf("Missing() = %v", got)
	}
}
