package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
server:
  port: 9090
database:
  host: db.test
  user: cs
  db_name: citescope_test
analysis:
  endpoint: https://analysis.test/v1
workspace:
  endpoint: https://workspace.test/api
pipeline:
  escalation_limit: 5
  min_escalation_score: 0.4
log:
  level: debug
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadReadsFileAndAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.test" {
		t.Errorf("db host = %q", cfg.Database.Host)
	}
	if cfg.Pipeline.EscalationLimit != 5 {
		t.Errorf("escalation limit = %d, want 5", cfg.Pipeline.EscalationLimit)
	}
	if cfg.Pipeline.MinEscalationScore != 0.4 {
		t.Errorf("min escalation score = %v, want 0.4", cfg.Pipeline.MinEscalationScore)
	}
	// Defaulted fields.
	if cfg.Redis.Addr != DefaultRedisAddr {
		t.Errorf("redis addr = %q, want default", cfg.Redis.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidConfigFails(t *testing.T) {
	// Valid YAML, but fails validation: no database user.
	bad := `
database:
  host: db.test
analysis:
  endpoint: https://analysis.test/v1
`
	if _, err := Load(writeTempConfig(t, bad)); err == nil {
		t.Fatal("expected validation failure for missing database.user")
	}
}

func TestMustLoadPanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad should panic on missing file")
		}
	}()
	MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
}

//Personal.AI order the ending
