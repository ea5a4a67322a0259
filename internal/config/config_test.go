package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.Port != "" {
		t.Errorf("Port = %q, want empty", s.Port)
	}
	if s.Baud != 921600 {
		t.Errorf("Baud = %d, want 921600", s.Baud)
	}
	if s.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", s.DataDir)
	}
	if s.ImageFile != "data.spiffs" {
		t.Errorf("ImageFile = %q, want data.spiffs", s.ImageFile)
	}
	if s.TableFile != "partition_table.bin" {
		t.Errorf("TableFile = %q, want partition_table.bin", s.TableFile)
	}
	if s.Timeout != 0 {
		t.Errorf("Timeout = %s, want 0", s.Timeout)
	}

	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
		field  string
	}{
		{"zero baud", func(s *Settings) { s.Baud = 0 }, "speed"},
		{"negative baud", func(s *Settings) { s.Baud = -1 }, "speed"},
		{"empty data dir", func(s *Settings) { s.DataDir = " " }, "data"},
		{"empty image", func(s *Settings) { s.ImageFile = "" }, "file"},
		{"empty table", func(s *Settings) { s.TableFile = "" }, "table"},
		{"empty esptool", func(s *Settings) { s.Esptool = "" }, "esptool"},
		{"empty mkspiffs", func(s *Settings) { s.Mkspiffs = "" }, "mkspiffs"},
		{"negative timeout", func(s *Settings) { s.Timeout = -time.Second }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)

			err := s.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestRequirePort(t *testing.T) {
	s := DefaultSettings()

	err := s.RequirePort()
	if !errors.Is(err, ErrPortRequired) {
		t.Fatalf("expected ErrPortRequired, got %v", err)
	}
	if err.Error() != "--port parameter is required for this operation" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	s.Port = "/dev/ttyUSB0"
	if err := s.RequirePort(); err != nil {
		t.Errorf("expected nil with port set, got %v", err)
	}
}

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "spiffsctl") {
		t.Errorf("GetConfigDir() = %v, should contain 'spiffsctl'", configDir)
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	want := filepath.Join(dir, "spiffsctl", "config.yaml")
	if path != want {
		t.Errorf("GetConfigPath() = %q, want %q", path, want)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	s := DefaultSettings()
	s.Port = "/dev/ttyUSB0"
	s.Baud = 460800
	s.Timeout = 5 * time.Minute

	if err := Save(path, NewFileConfig(s)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "# spiffsctl configuration") {
		t.Errorf("expected header comment, got:\n%s", raw)
	}

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if fc.Version != 1 || fc.Port != "/dev/ttyUSB0" || fc.Speed != 460800 || fc.Timeout != "5m0s" {
		t.Errorf("unexpected file config: %+v", fc)
	}
}

func TestLoadFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spiffsctl.toml")
	data := `version = 1
port = "COM3"
speed = 921600
tool_dir = 'C:\tools'
timeout = "2m"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if fc.Port != "COM3" || fc.Speed != 921600 || fc.ToolDir != `C:\tools` || fc.Timeout != "2m" {
		t.Errorf("unexpected file config: %+v", fc)
	}

	// Round trip through Save keeps the TOML format
	out := filepath.Join(t.TempDir(), "config.toml")
	if err := Save(out, fc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	back, err := LoadFile(out)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if *back != *fc {
		t.Errorf("round trip = %+v, want %+v", back, fc)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("port: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected parse error")
	}

	future := filepath.Join(dir, "future.yaml")
	if err := os.WriteFile(future, []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(future); err == nil || !strings.Contains(err.Error(), "unsupported config version") {
		t.Errorf("expected version error, got %v", err)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyFile(t *testing.T) {
	fc := &FileConfig{
		Port:     "/dev/ttyUSB1",
		Speed:    115200,
		Data:     "www",
		File:     "www.spiffs",
		Table:    "table.bin",
		Esptool:  "/opt/esptool.py",
		Mkspiffs: "/opt/mkspiffs",
		ToolDir:  "/opt",
		Timeout:  "90s",
	}

	t.Run("file fills unset flags", func(t *testing.T) {
		s := DefaultSettings()
		if err := ApplyFile(&s, fc, nil); err != nil {
			t.Fatalf("ApplyFile() error = %v", err)
		}

		want := Settings{
			Port:      "/dev/ttyUSB1",
			Baud:      115200,
			DataDir:   "www",
			ImageFile: "www.spiffs",
			TableFile: "table.bin",
			Esptool:   "/opt/esptool.py",
			Mkspiffs:  "/opt/mkspiffs",
			ToolDir:   "/opt",
			Timeout:   90 * time.Second,
		}
		if s != want {
			t.Errorf("got %+v, want %+v", s, want)
		}
	})

	t.Run("explicit flags win", func(t *testing.T) {
		s := DefaultSettings()
		s.Port = "COM3"
		s.Baud = 230400

		changed := map[string]bool{"port": true, "speed": true, "timeout": true}
		if err := ApplyFile(&s, fc, changed); err != nil {
			t.Fatalf("ApplyFile() error = %v", err)
		}

		if s.Port != "COM3" || s.Baud != 230400 || s.Timeout != 0 {
			t.Errorf("explicit flags overwritten: %+v", s)
		}
		if s.DataDir != "www" {
			t.Errorf("DataDir = %q, want www", s.DataDir)
		}
	})

	t.Run("bad timeout", func(t *testing.T) {
		s := DefaultSettings()
		err := ApplyFile(&s, &FileConfig{Timeout: "soon"}, nil)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "timeout" {
			t.Errorf("expected timeout ConfigError, got %v", err)
		}
	})

	t.Run("nil file", func(t *testing.T) {
		s := DefaultSettings()
		if err := ApplyFile(&s, nil, nil); err != nil {
			t.Errorf("ApplyFile(nil) error = %v", err)
		}
		if s != DefaultSettings() {
			t.Error("nil file should not change settings")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	t.Run("none", func(t *testing.T) {
		path, err := FindConfigFile("")
		if err != nil || path != "" {
			t.Errorf("FindConfigFile() = %q, %v; want empty, nil", path, err)
		}
	})

	t.Run("explicit missing", func(t *testing.T) {
		if _, err := FindConfigFile(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})

	t.Run("local file", func(t *testing.T) {
		if err := os.WriteFile(LocalConfigFileName, []byte("version: 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		defer os.Remove(LocalConfigFileName)

		path, err := FindConfigFile("")
		if err != nil || path != LocalConfigFileName {
			t.Errorf("FindConfigFile() = %q, %v; want %q", path, err, LocalConfigFileName)
		}
	})

	t.Run("local toml file", func(t *testing.T) {
		if err := os.WriteFile(LocalTOMLConfigFileName, []byte("version = 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		defer os.Remove(LocalTOMLConfigFileName)

		path, err := FindConfigFile("")
		if err != nil || path != LocalTOMLConfigFileName {
			t.Errorf("FindConfigFile() = %q, %v; want %q", path, err, LocalTOMLConfigFileName)
		}
	})
}
