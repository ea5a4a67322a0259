package mkspiffs

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/muurk/spiffsctl/internal/runner"
)

type fakeExecutor struct {
	commands []runner.Command
	err      error
}

func (f *fakeExecutor) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return nil, f.err
	}
	return &runner.Result{Tool: cmd.Name, Args: cmd.Args}, nil
}

func TestNewPacker_Defaults(t *testing.T) {
	p := NewPacker(&fakeExecutor{}, Options{}, nil)

	if p.tool != "mkspiffs" {
		t.Errorf("tool = %q, want mkspiffs", p.tool)
	}
	if p.workDir == "" {
		t.Error("expected workDir to default to the current directory")
	}
}

func TestPacker_Path(t *testing.T) {
	work := t.TempDir()
	p := NewPacker(&fakeExecutor{}, Options{WorkDir: work}, zap.NewNop())

	tests := []struct {
		in   string
		want string
	}{
		{"data", filepath.Join(work, "data")},
		{"./out/data.spiffs", filepath.Join(work, "out", "data.spiffs")},
		{filepath.Join(work, "abs"), filepath.Join(work, "abs")},
	}

	for _, tt := range tests {
		got, err := p.Path(tt.in)
		if err != nil {
			t.Fatalf("Path(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Path(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPacker_Commands(t *testing.T) {
	work := t.TempDir()
	data := filepath.Join(work, "data")
	image := filepath.Join(work, "data.spiffs")

	tests := []struct {
		name string
		run  func(p *Packer) error
		want []string
	}{
		{
			name: "make",
			run:  func(p *Packer) error { return p.Make(context.Background(), "data", "data.spiffs", 0x160000) },
			want: []string{"-c", data, image, "-p", "256", "-b", "4096", "-s", "1441792"},
		},
		{
			name: "unpack",
			run:  func(p *Packer) error { return p.Unpack(context.Background(), "data.spiffs", "data") },
			want: []string{"-u", data, image},
		},
		{
			name: "list",
			run:  func(p *Packer) error { return p.List(context.Background(), "data.spiffs") },
			want: []string{"-l", image},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{}
			p := NewPacker(exec, Options{Tool: "/opt/mkspiffs", WorkDir: work}, zap.NewNop())

			if err := tt.run(p); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(exec.commands) != 1 {
				t.Fatalf("expected 1 command, got %d", len(exec.commands))
			}
			if exec.commands[0].Name != "/opt/mkspiffs" {
				t.Errorf("Name = %q, want /opt/mkspiffs", exec.commands[0].Name)
			}
			if !reflect.DeepEqual(exec.commands[0].Args, tt.want) {
				t.Errorf("Args = %v, want %v", exec.commands[0].Args, tt.want)
			}
		})
	}
}

func TestPacker_PropagatesToolFailure(t *testing.T) {
	spawnErr := &runner.SpawnError{Tool: "mkspiffs", Err: errors.New("not found")}
	p := NewPacker(&fakeExecutor{err: spawnErr}, Options{WorkDir: t.TempDir()}, zap.NewNop())

	err := p.List(context.Background(), "data.spiffs")

	var se *runner.SpawnError
	if !errors.As(err, &se) {
		t.Fatalf("expected *runner.SpawnError, got %v", err)
	}
}
