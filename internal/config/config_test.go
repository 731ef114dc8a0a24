package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != 8710 {
		t.Errorf("port = %d", c.Port)
	}
	if c.Run.PollIntervalMS != 890 || c.Run.TimeoutMS != 55000 {
		t.Errorf("run = %+v", c.Run)
	}
	if c.Provider.Model == "" {
		t.Error("no default model")
	}
	if c.Contribution.RequestTTLHours != 72 {
		t.Errorf("ttl = %d", c.Contribution.RequestTTLHours)
	}
	if c.Maintenance.Schedule == "" {
		t.Error("no default maintenance schedule")
	}
}

func TestLoadFromBytesExpandsEnv(t *testing.T) {
	os.Setenv("MEMOIR_TEST_SECRET", "s3cret")
	defer os.Unsetenv("MEMOIR_TEST_SECRET")

	c, err := LoadFromBytes([]byte("auth:\n  accessSecret: ${MEMOIR_TEST_SECRET}\nport: 9000\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if c.Auth.AccessSecret != "s3cret" {
		t.Errorf("secret = %q", c.Auth.AccessSecret)
	}
	if c.Port != 9000 {
		t.Errorf("port = %d", c.Port)
	}
}

func TestDurationHelpers(t *testing.T) {
	var c Config
	c.Run.PollIntervalMS = 890
	c.Run.TimeoutMS = 55000
	c.Contribution.RequestTTLHours = 72

	if c.PollInterval() != 890*time.Millisecond {
		t.Errorf("poll = %s", c.PollInterval())
	}
	if c.RunTimeout() != 55*time.Second {
		t.Errorf("timeout = %s", c.RunTimeout())
	}
	if c.RequestTTL() != 72*time.Hour {
		t.Errorf("ttl = %s", c.RequestTTL())
	}
}

func TestLoadParsesFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memoir.yaml")
	content := `
port: 8080
experience:
  scriptDir: /srv/experiences
  hotReload: true
contribution:
  llmQuestions: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != 8080 || c.Experience.ScriptDir != "/srv/experiences" {
		t.Errorf("config = %+v", c)
	}
	if !c.Experience.HotReload || !c.Contribution.LLMQuestions {
		t.Error("booleans not parsed")
	}
	// Defaults still fill the unset sections.
	if c.Run.PollIntervalMS != 890 {
		t.Errorf("poll default = %d", c.Run.PollIntervalMS)
	}
}
