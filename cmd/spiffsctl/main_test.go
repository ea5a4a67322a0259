package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/partition"
	"github.com/muurk/spiffsctl/internal/runner"
	"github.com/muurk/spiffsctl/internal/spiffs"
	"github.com/muurk/spiffsctl/internal/ui"
)

// Environment variables that turn the test binary into a fake tool.
const (
	fakeToolEnv      = "SPIFFSCTL_FAKE_TOOL"
	fakeTableEnv     = "SPIFFSCTL_FAKE_TABLE"     // "empty" for a table without SPIFFS
	fakeOversizeEnv  = "SPIFFSCTL_FAKE_OVERSIZE"  // "1" makes mkspiffs build too large an image
	fakeExitCodeEnv  = "SPIFFSCTL_FAKE_EXIT_CODE" // non-zero exit for every call
	fakeSPIFFSStart  = 0x290000
	fakeSPIFFSLength = 0x2000
)

func TestMain(m *testing.M) {
	if os.Getenv(fakeToolEnv) == "1" {
		os.Exit(fakeTool(os.Args[1:]))
	}
	os.Exit(m.Run())
}

// fakeTool mimics the parts of esptool and mkspiffs that spiffsctl uses.
func fakeTool(args []string) int {
	if code := os.Getenv(fakeExitCodeEnv); code != "" {
		fmt.Fprintln(os.Stderr, "A fatal error occurred: Failed to connect to ESP32")
		n, _ := strconv.Atoi(code)
		return n
	}
	if len(args) == 0 {
		return 2
	}

	write := func(path string, data []byte) int {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	switch args[0] {
	case "--port":
		// esptool: --port P --baud B <op> ...
		op := args[4]
		switch op {
		case "read_flash":
			fmt.Println("Connecting....")
			out := args[7]
			if args[5] == "0x8000" {
				if os.Getenv(fakeTableEnv) == "empty" {
					return write(out, make([]byte, partition.TableSize))
				}
				return write(out, fakeTable())
			}
			size, _ := strconv.ParseUint(strings.TrimPrefix(args[6], "0x"), 16, 32)
			return write(out, make([]byte, size))
		case "write_flash":
			if _, err := os.Stat(args[6]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			fmt.Println("Hash of data verified.")
			return 0
		}
	case "-c":
		// mkspiffs -c <data> <image> -p 256 -b 4096 -s <size>
		size, _ := strconv.Atoi(args[8])
		if os.Getenv(fakeOversizeEnv) == "1" {
			size++
		}
		return write(args[2], make([]byte, size))
	case "-u":
		if err := os.MkdirAll(args[1], 0o755); err != nil {
			return 1
		}
		return write(filepath.Join(args[1], "index.html"), []byte("<html></html>"))
	case "-l":
		fmt.Println("13\t/index.html")
		return 0
	case "version", "--version":
		fmt.Println("fake 1.0")
		return 0
	}

	fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", args)
	return 2
}

func fakeTable() []byte {
	data := bytes.Repeat([]byte{0xFF}, partition.TableSize)
	rec := data[:partition.EntrySize]
	copy(rec, partition.SPIFFSMarker)
	binary.LittleEndian.PutUint32(rec[4:8], fakeSPIFFSStart)
	binary.LittleEndian.PutUint32(rec[8:12], fakeSPIFFSLength)
	clear(rec[12:32])
	copy(rec[12:28], "spiffs")
	return data
}

func resetFlags(cmd *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(cmd.PersistentFlags())
	reset(cmd.Flags())
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs spiffsctl in a scratch directory with the fake tools.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv(fakeToolEnv, "1")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	fake := os.Args[0]
	rootCmd.SetArgs(append([]string{"--esptool=" + fake, "--mkspiffs=" + fake}, args...))
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"missing port", config.Settings{}.RequirePort(), 1},
		{"bad setting", &config.ConfigError{Field: "speed", Reason: "bad"}, 1},
		{"cancelled", errCancelled, 1},
		{"tool failed", fmt.Errorf("esptool read_flash failed: %w", &runner.ExecutionError{Tool: "esptool.py", ExitCode: 2}), 2},
		{"timeout", &runner.TimeoutError{Tool: "esptool.py"}, 2},
		{"spawn", &runner.SpawnError{Tool: "mkspiffs", Err: errors.New("not found")}, 3},
		{"prerequisite", &runner.PrerequisiteError{Prerequisite: "esptool"}, 3},
		{"not found", &partition.TableError{Offset: -1, Err: partition.ErrNotFound}, 4},
		{"truncated", partition.ErrTruncated, 4},
		{"too large", &spiffs.ImageTooLargeError{ImageSize: 2, PartitionSize: 1}, 5},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestStepReporter(t *testing.T) {
	var got []ui.StepStatus
	report := stepReporter(func(n int, name string, status ui.StepStatus, message string) {
		got = append(got, status)
	})

	for _, s := range []spiffs.StepStatus{spiffs.StepRunning, spiffs.StepSuccess, spiffs.StepFailed} {
		report(spiffs.Step{Number: 1, Total: 1, Name: "x", Status: s})
	}

	want := []ui.StepStatus{ui.StepRunning, ui.StepComplete, ui.StepFailed}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("statuses = %v, want %v", got, want)
	}

	if stepReporter(nil) != nil {
		t.Error("nil callback should give a nil ProgressFunc")
	}
}

func TestDeviceCommands_RequirePort(t *testing.T) {
	for _, cmd := range []string{"read", "write", "part"} {
		t.Run(cmd, func(t *testing.T) {
			out, err := execute(t, cmd)

			if !errors.Is(err, config.ErrPortRequired) {
				t.Fatalf("expected ErrPortRequired, got %v", err)
			}
			if exitCode(err) != 1 {
				t.Errorf("exit code = %d, want 1", exitCode(err))
			}
			if _, statErr := os.Stat(config.DefaultTableFile); !os.IsNotExist(statErr) {
				t.Error("no tool should have run")
			}
			if strings.Contains(out, "Connecting") {
				t.Errorf("esptool ran:\n%s", out)
			}
		})
	}
}

func TestPart(t *testing.T) {
	out, err := execute(t, "part", "--port", "/dev/ttyFAKE")
	if err != nil {
		t.Fatalf("part error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "startAddress: 0x290000, size: 0x2000") {
		t.Errorf("missing partition line:\n%s", out)
	}
}

func TestPart_NoSPIFFS(t *testing.T) {
	t.Setenv(fakeTableEnv, "empty")

	out, err := execute(t, "part", "--port", "/dev/ttyFAKE")
	if err != nil {
		t.Fatalf("part should succeed without a SPIFFS partition, got %v", err)
	}
	if !strings.Contains(out, "startAddress: 0x0, size: 0x0") {
		t.Errorf("missing zero partition line:\n%s", out)
	}
	if !strings.Contains(out, "WARNING") {
		t.Errorf("missing warning:\n%s", out)
	}
}

func TestRead_NoSPIFFS(t *testing.T) {
	t.Setenv(fakeTableEnv, "empty")

	_, err := execute(t, "read", "--port", "/dev/ttyFAKE")
	if !errors.Is(err, partition.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if exitCode(err) != 4 {
		t.Errorf("exit code = %d, want 4", exitCode(err))
	}
}

func TestRead(t *testing.T) {
	out, err := execute(t, "read", "--port", "/dev/ttyFAKE", "--data", "backup")
	if err != nil {
		t.Fatalf("read error = %v\n%s", err, out)
	}

	fi, err := os.Stat(config.DefaultImageFile)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != fakeSPIFFSLength {
		t.Errorf("image size = %d, want %d", fi.Size(), fakeSPIFFSLength)
	}
	if _, err := os.Stat(filepath.Join("backup", "index.html")); err != nil {
		t.Errorf("image was not unpacked: %v", err)
	}
	if !strings.Contains(out, "Connecting....") {
		t.Errorf("esptool output should be streamed:\n%s", out)
	}
}

func TestWrite(t *testing.T) {
	out, err := execute(t, "write", "--port", "/dev/ttyFAKE", "--yes")
	if err != nil {
		t.Fatalf("write error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Hash of data verified.") {
		t.Errorf("image was not flashed:\n%s", out)
	}
}

func TestWrite_ImageTooLarge(t *testing.T) {
	t.Setenv(fakeOversizeEnv, "1")

	out, err := execute(t, "write", "--port", "/dev/ttyFAKE", "--yes")
	if exitCode(err) != 5 {
		t.Fatalf("exit code = %d (%v), want 5", exitCode(err), err)
	}
	if strings.Contains(out, "Hash of data verified.") {
		t.Error("oversized image must not be flashed")
	}
}

func TestWrite_Declined(t *testing.T) {
	stdin = strings.NewReader("no\n")
	defer func() { stdin = os.Stdin }()

	_, err := execute(t, "write", "--port", "/dev/ttyFAKE")
	if !errors.Is(err, errCancelled) {
		t.Fatalf("expected errCancelled, got %v", err)
	}
	if _, statErr := os.Stat(config.DefaultTableFile); !os.IsNotExist(statErr) {
		t.Error("nothing should run after a declined prompt")
	}
}

func TestToolFailure(t *testing.T) {
	t.Setenv(fakeExitCodeEnv, "2")

	out, err := execute(t, "part", "--port", "/dev/ttyFAKE", "--verbose")
	var execErr *runner.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *runner.ExecutionError, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Errorf("exit code = %d, want 2", exitCode(err))
	}
	if !strings.Contains(out, "Failed to connect") {
		t.Errorf("stderr should be shown:\n%s", out)
	}
}

func TestMissingTool(t *testing.T) {
	_, err := execute(t, "list", "--mkspiffs", "spiffsctl-no-such-mkspiffs")
	if exitCode(err) != 3 {
		t.Errorf("exit code = %d (%v), want 3", exitCode(err), err)
	}
}

func TestMakeAndList(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "table.bin")
	if err := os.WriteFile(table, fakeTable(), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "make", "--table", table)
	if err != nil {
		t.Fatalf("make error = %v\n%s", err, out)
	}
	if fi, err := os.Stat(config.DefaultImageFile); err != nil || fi.Size() != fakeSPIFFSLength {
		t.Errorf("image not built with partition size: %v", err)
	}

	out, err = execute(t, "list")
	if err != nil {
		t.Fatalf("list error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "/index.html") {
		t.Errorf("listing not streamed:\n%s", out)
	}
}

func TestMake_MissingTable(t *testing.T) {
	_, err := execute(t, "make")
	if err == nil {
		t.Fatal("expected an error without a local partition table")
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spiffsctl.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nport: /dev/ttyFAKE\nspeed: 115200\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "config", "show", "--config", path, "--speed", "230400")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "port: /dev/ttyFAKE") {
		t.Errorf("port should come from the file:\n%s", out)
	}
	if !strings.Contains(out, "speed: 230400") {
		t.Errorf("explicit --speed should win:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	if _, err := execute(t, "config", "init", "--config", path, "--port", "COM3"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	fc, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Port != "COM3" {
		t.Errorf("Port = %q, want COM3", fc.Port)
	}

	if _, err := execute(t, "config", "init", "--config", path); exitCode(err) != 1 {
		t.Errorf("second init without --force should fail with exit 1, got %v", err)
	}
}

func TestVerifySetup(t *testing.T) {
	out, err := execute(t, "verify-setup")
	if err != nil {
		t.Fatalf("verify-setup error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "fake 1.0") {
		t.Errorf("tool versions should be reported:\n%s", out)
	}

	_, err = execute(t, "verify-setup", "--esptool", "spiffsctl-no-such-esptool")
	var prereq *runner.PrerequisiteError
	if !errors.As(err, &prereq) || prereq.Prerequisite != "esptool" {
		t.Errorf("expected esptool PrerequisiteError, got %v", err)
	}
}
