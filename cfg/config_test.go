package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Configuration {
	return &Configuration{
		InstanceID: 1,
		SQLMap: SQLMapConfiguration{
			Dirs:             []string{"./sql"},
			Watch:            true,
			WatchDebounceMS:  100,
			StatsIntervalSec: 15,
		},
		Cache: CacheConfiguration{
			Enabled: true,
			Size:    128,
		},
		Validation: ValidationConfiguration{
			Dialect: DialectMySQL,
		},
		Admin: AdminConfiguration{
			Enabled: true,
			Port:    8089,
		},
		Logging: LoggingConfiguration{
			Format: "console",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()

	if err := Validate(); err != nil {
		t.Errorf("Expected no error for valid config, got: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	tests := []struct {
		name   string
		mutate func(c *Configuration)
	}{
		{"no dirs", func(c *Configuration) { c.SQLMap.Dirs = nil }},
		{"bad include glob", func(c *Configuration) { c.SQLMap.Include = []string{"["} }},
		{"bad exclude glob", func(c *Configuration) { c.SQLMap.Exclude = []string{"{a,b"} }},
		{"negative debounce", func(c *Configuration) { c.SQLMap.WatchDebounceMS = -1 }},
		{"zero stats interval", func(c *Configuration) { c.SQLMap.StatsIntervalSec = 0 }},
		{"zero cache size", func(c *Configuration) { c.Cache.Size = 0 }},
		{"unknown dialect", func(c *Configuration) { c.Validation.Dialect = "oracle" }},
		{"admin port zero", func(c *Configuration) { c.Admin.Port = 0 }},
		{"admin port too large", func(c *Configuration) { c.Admin.Port = 70000 }},
		{"bad log format", func(c *Configuration) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Config = validConfig()
			tt.mutate(Config)
			if err := Validate(); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestValidate_DisabledSectionsSkipChecks(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()
	Config.Cache.Enabled = false
	Config.Cache.Size = 0
	Config.Admin.Enabled = false
	Config.Admin.Port = 0

	if err := Validate(); err != nil {
		t.Errorf("Expected no error when cache and admin are disabled, got: %v", err)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()

	if err := Load("non-existent-file.toml"); err != nil {
		t.Errorf("Expected no error for non-existent file, got: %v", err)
	}
	if Config.InstanceID != 1 {
		t.Errorf("Expected configured instance ID to survive, got %d", Config.InstanceID)
	}
}

func TestLoad_DecodesFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
instance_id = 42

[sqlmap]
dirs = ["/srv/sql", "/srv/sql-extra"]
include = ["**.toml"]
watch = false

[cache]
size = 16

[validation]
dialect = "sqlite"
strict = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Load(path); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if Config.InstanceID != 42 {
		t.Errorf("Expected instance ID 42, got %d", Config.InstanceID)
	}
	if len(Config.SQLMap.Dirs) != 2 || Config.SQLMap.Dirs[1] != "/srv/sql-extra" {
		t.Errorf("Unexpected dirs: %v", Config.SQLMap.Dirs)
	}
	if Config.SQLMap.Watch {
		t.Error("Expected watch to be disabled")
	}
	if Config.Cache.Size != 16 {
		t.Errorf("Expected cache size 16, got %d", Config.Cache.Size)
	}
	if Config.Validation.Dialect != DialectSQLite || !Config.Validation.Strict {
		t.Errorf("Unexpected validation config: %+v", Config.Validation)
	}
	// untouched sections keep their previous values
	if Config.Admin.Port != 8089 {
		t.Errorf("Expected admin port 8089, got %d", Config.Admin.Port)
	}
}

func TestLoad_BadFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[sqlmap\ndirs = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Load(path); err == nil {
		t.Error("Expected decode error")
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	*SQLDirFlag = "/tmp/override-sql"
	*AdminPortFlag = 9999
	defer func() {
		*SQLDirFlag = ""
		*AdminPortFlag = 0
	}()

	Config = validConfig()

	if err := Load(""); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if len(Config.SQLMap.Dirs) != 1 || Config.SQLMap.Dirs[0] != "/tmp/override-sql" {
		t.Errorf("Expected sql dir override, got %v", Config.SQLMap.Dirs)
	}
	if Config.Admin.Port != 9999 {
		t.Errorf("Expected admin port 9999, got %d", Config.Admin.Port)
	}
}

func TestGenerateInstanceID(t *testing.T) {
	id1, err := generateInstanceID()
	if err != nil {
		t.Skipf("machine id unavailable: %v", err)
	}
	if id1 == 0 {
		t.Error("Generated instance ID should not be 0")
	}

	id2, err := generateInstanceID()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id1 != id2 {
		t.Error("Instance ID should be deterministic for same machine")
	}
}

func TestIsAdminAuthEnabled(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()
	if IsAdminAuthEnabled() {
		t.Error("Expected auth disabled without a secret")
	}
	Config.Admin.Secret = "s3cret"
	if !IsAdminAuthEnabled() {
		t.Error("Expected auth enabled with a secret")
	}
}

func BenchmarkValidate(b *testing.B) {
	original := Config
	defer func() { Config = original }()

	Config = validConfig()
	for i := 0; i < b.N; i++ {
		_ = Validate()
	}
}
