// Package runner spawns the external programs spiffsctl orchestrates.
//
// spiffsctl never talks to the device or parses SPIFFS images itself. It
// builds a Command for esptool or mkspiffs and hands it to a Runner, which
// starts the process, streams its output to the console, and reports the
// outcome.
//
// # Outcomes
//
// Run returns exactly one of:
//
//   - a *Result, when the tool exits with status 0
//   - an *ExecutionError carrying the exit code and captured stderr
//   - a *SpawnError, when the executable cannot be found or started
//   - a *TimeoutError, when Config.Timeout is set and exceeded
//
// There are no retries. Each call is a single attempt.
//
// # Tool Resolution
//
// Tools are looked up in Config.ToolDir first (by default the directory that
// holds the spiffsctl binary, so esptool and mkspiffs can ship alongside it),
// then in PATH. On Windows a ".exe" suffix is tried automatically.
//
// # Testing
//
// Adapters depend on the Executor interface rather than *Runner, so they can
// be tested with a recording fake:
//
//	type fakeExecutor struct{ commands []runner.Command }
//
//	func (f *fakeExecutor) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
//	    f.commands = append(f.commands, cmd)
//	    return &runner.Result{Tool: cmd.Name}, nil
//	}
package runner
