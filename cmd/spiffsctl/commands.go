package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/esptool"
	"github.com/muurk/spiffsctl/internal/logging"
	"github.com/muurk/spiffsctl/internal/mkspiffs"
	"github.com/muurk/spiffsctl/internal/runner"
	"github.com/muurk/spiffsctl/internal/spiffs"
	"github.com/muurk/spiffsctl/internal/ui"
)

// Command flags
var (
	portFlag     string
	speedFlag    int
	dataFlag     string
	fileFlag     string
	tableFlag    string
	configFlag   string
	esptoolFlag  string
	mkspiffsFlag string
	toolDirFlag  string
	timeoutFlag  time.Duration
	verboseFlag  bool
	yesFlag      bool
)

// stdin is read by confirmation prompts.
var stdin io.Reader = os.Stdin

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&portFlag, "port", "p", "", "Serial port of the device (e.g. /dev/ttyUSB0, COM3)")
	flags.IntVarP(&speedFlag, "speed", "s", config.DefaultBaud, "Baud rate for esptool")
	flags.StringVarP(&dataFlag, "data", "d", config.DefaultDataDir, "Data directory packed into or unpacked from the image")
	flags.StringVarP(&fileFlag, "file", "f", config.DefaultImageFile, "SPIFFS image file")
	flags.StringVar(&tableFlag, "table", config.DefaultTableFile, "Local partition table file")
	flags.StringVar(&configFlag, "config", "", "Config file, YAML or .toml (default: ./spiffsctl.yaml, then the user config dir)")
	flags.StringVar(&esptoolFlag, "esptool", config.DefaultEsptool, "esptool executable name or path")
	flags.StringVar(&mkspiffsFlag, "mkspiffs", config.DefaultMkspiffs, "mkspiffs executable name or path")
	flags.StringVar(&toolDirFlag, "tool-dir", "", "Directory searched for tools before PATH (default: next to spiffsctl)")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "Per-tool time limit, e.g. 5m (0 for none)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging and tool stderr on failure")

	writeCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(partCmd)
	rootCmd.AddCommand(unpackCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(verifySetupCmd)
}

// env is everything a command needs, built once per invocation.
type env struct {
	settings config.Settings
	logger   *zap.Logger
	runner   *runner.Runner
	printer  *ui.Printer
}

// loadSettings merges defaults, the config file and explicitly set flags.
func loadSettings(flags *pflag.FlagSet) (config.Settings, error) {
	s := config.Settings{
		Port:      portFlag,
		Baud:      speedFlag,
		DataDir:   dataFlag,
		ImageFile: fileFlag,
		TableFile: tableFlag,
		Esptool:   esptoolFlag,
		Mkspiffs:  mkspiffsFlag,
		ToolDir:   toolDirFlag,
		Timeout:   timeoutFlag,
	}

	changed := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})

	path, err := config.FindConfigFile(configFlag)
	if err != nil {
		return s, err
	}
	if path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			return s, err
		}
		if err := config.ApplyFile(&s, fc, changed); err != nil {
			return s, err
		}
		logging.Debug("loaded config file", zap.String("path", path))
	}

	if s.ToolDir == "" {
		s.ToolDir = runner.DefaultConfig().ToolDir
	}

	return s, s.Validate()
}

// newEnv initialises logging and builds the tool runner from the flags of cmd.
func newEnv(cmd *cobra.Command) (*env, error) {
	if err := logging.InitializeFromEnv(); err != nil {
		return nil, err
	}
	if verboseFlag && os.Getenv(logging.LogLevelEnvVar) == "" {
		if err := logging.Initialize("debug"); err != nil {
			return nil, err
		}
	}

	settings, err := loadSettings(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := logging.Named("spiffsctl")
	logger.Debug("settings", zap.Any("settings", settings))

	rc := runner.DefaultConfig()
	rc.ToolDir = settings.ToolDir
	rc.Timeout = settings.Timeout
	rc.Stdout = cmd.OutOrStdout()
	rc.Stderr = cmd.ErrOrStderr()

	return &env{
		settings: settings,
		logger:   logger,
		runner:   runner.New(rc, logging.Named("runner")),
		printer:  ui.NewPrinter(cmd.OutOrStdout()),
	}, nil
}

// operations wires esptool and mkspiffs into a spiffs.Operations that reports
// steps to onStep.
func (e *env) operations(onStep ui.StepCallback) *spiffs.Operations {
	return spiffs.New(spiffs.Options{
		Settings: e.settings,
		Flasher: esptool.NewFlasher(e.runner, esptool.Options{
			Tool: e.settings.Esptool,
			Port: e.settings.Port,
			Baud: e.settings.Baud,
		}, logging.Named("esptool")),
		Packer: mkspiffs.NewPacker(e.runner, mkspiffs.Options{
			Tool: e.settings.Mkspiffs,
		}, logging.Named("mkspiffs")),
		Logger:     logging.Named("spiffs"),
		OnProgress: stepReporter(onStep),
	})
}

// stepReporter forwards orchestrator steps to the UI.
func stepReporter(onStep ui.StepCallback) spiffs.ProgressFunc {
	if onStep == nil {
		return nil
	}
	return func(s spiffs.Step) {
		status := ui.StepPending
		switch s.Status {
		case spiffs.StepRunning:
			status = ui.StepRunning
		case spiffs.StepSuccess:
			status = ui.StepComplete
		case spiffs.StepFailed:
			status = ui.StepFailed
		}
		onStep(s.Number, s.Name, status, s.Message)
	}
}

// run builds the env and runs fn inside a header/steps/result frame.
func (e *env) run(cmd *cobra.Command, title string, steps []string, params []ui.Field,
	fn func(ctx context.Context, ops *spiffs.Operations) ([]ui.Field, error)) error {
	op := ui.NewOperation(e.printer, ui.OperationConfig{
		Title:           title,
		Command:         commandLine(cmd),
		Params:          params,
		StepNames:       steps,
		Troubleshooting: troubleshooting,
		Verbose:         verboseFlag,
	})
	return op.Run(func(onStep ui.StepCallback) ([]ui.Field, error) {
		return fn(cmd.Context(), e.operations(onStep))
	})
}

func (e *env) deviceParams() []ui.Field {
	return []ui.Field{
		{Key: "Port", Value: e.settings.Port},
		{Key: "Baud", Value: strconv.Itoa(e.settings.Baud)},
	}
}

func (e *env) fileParams() []ui.Field {
	return []ui.Field{
		{Key: "Image", Value: e.settings.ImageFile},
		{Key: "Data", Value: e.settings.DataDir},
	}
}

// requirePort checks the port before anything is printed, so a missing
// --port produces only the diagnostic.
func (e *env) requirePort() error {
	if err := e.settings.RequirePort(); err != nil {
		e.printer.Failure("Missing serial port", err, []string{
			"Pass the device port: --port /dev/ttyUSB0 (Linux), --port COM3 (Windows)",
			"Or set 'port:' in spiffsctl.yaml",
		})
		return err
	}
	return nil
}

func resultFields(r *spiffs.Result) []ui.Field {
	return []ui.Field{
		{Key: "Partition", Value: r.Partition.String()},
		{Key: "Image", Value: fmt.Sprintf("%s (%d bytes)", r.ImageFile, r.ImageSize)},
		{Key: "Data", Value: r.DataDir},
	}
}

func commandLine(cmd *cobra.Command) string {
	parts := []string{cmd.CommandPath()}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			parts = append(parts, "--"+f.Name+"="+f.Value.String())
		}
	})
	return strings.Join(parts, " ")
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Download the SPIFFS partition and unpack it",
	Long: `Read the SPIFFS partition from the device into the image file, then unpack
the image into the data directory.

Steps:
  1. Read the partition table (0x1000 bytes at 0x8000) into partition_table.bin
  2. Locate the SPIFFS partition
  3. Read the partition into the image file
  4. Unpack the image into the data directory`,
	Example: `  spiffsctl read --port /dev/ttyUSB0
  spiffsctl read -p COM3 -d backup -f backup.spiffs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if err := e.requirePort(); err != nil {
			return err
		}

		return e.run(cmd, "Read SPIFFS", spiffs.ReadSteps, append(e.deviceParams(), e.fileParams()...),
			func(ctx context.Context, ops *spiffs.Operations) ([]ui.Field, error) {
				r, err := ops.Read(ctx)
				if err != nil {
					return nil, err
				}
				return resultFields(r), nil
			})
	},
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Pack the data directory and flash it to the SPIFFS partition",
	Long: `Pack the data directory into an image sized to the device's SPIFFS partition
and write it to flash.

Steps:
  1. Read the partition table into partition_table.bin
  2. Locate the SPIFFS partition
  3. Build the image with mkspiffs
  4. Refuse to continue if the image is larger than the partition
  5. Write the image at the partition's start address

Everything currently stored in the SPIFFS partition is replaced.`,
	Example: `  spiffsctl write --port /dev/ttyUSB0
  spiffsctl write -p COM3 -d www --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if err := e.requirePort(); err != nil {
			return err
		}

		if !yesFlag && !ui.SPIFFSWriteConfirmation(e.printer, stdin, e.settings.Port, e.settings.ImageFile,
			"SPIFFS partition from the device partition table") {
			return errCancelled
		}

		return e.run(cmd, "Write SPIFFS", spiffs.WriteSteps, append(e.deviceParams(), e.fileParams()...),
			func(ctx context.Context, ops *spiffs.Operations) ([]ui.Field, error) {
				r, err := ops.Write(ctx)
				if err != nil {
					return nil, err
				}
				return resultFields(r), nil
			})
	},
}

var partCmd = &cobra.Command{
	Use:   "part",
	Short: "Show the SPIFFS partition of the device",
	Long: `Read the partition table from the device and print the SPIFFS partition's
start address and size, followed by the full table.

A table without a SPIFFS partition is reported as a warning with
startAddress 0x0 and size 0x0; the command still succeeds.`,
	Example: `  spiffsctl part --port /dev/ttyUSB0`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if err := e.requirePort(); err != nil {
			return err
		}

		var info *spiffs.PartitionInfo
		params := append(e.deviceParams(), ui.Field{Key: "Table", Value: e.settings.TableFile})
		err = e.run(cmd, "Partition Table", spiffs.PartSteps, params,
			func(ctx context.Context, ops *spiffs.Operations) ([]ui.Field, error) {
				var err error
				info, err = ops.Part(ctx)
				if err != nil {
					return nil, err
				}
				return []ui.Field{
					{Key: "SPIFFS", Value: info.SPIFFS.String()},
					{Key: "Entries", Value: strconv.Itoa(len(info.Table))},
				}, nil
			})
		if err != nil {
			return err
		}

		printPartitionInfo(e.printer, info, e.settings.TableFile)
		return nil
	},
}

func printPartitionInfo(p *ui.Printer, info *spiffs.PartitionInfo, tableFile string) {
	p.Newline()
	if len(info.Table) > 0 {
		p.PartitionTable(ui.RenderPartitionTable(info.Table, info.SPIFFS))
		p.Newline()
	}

	p.Println(info.SPIFFS.String())

	if !info.Found {
		details := []ui.Field{{Key: "Table", Value: tableFile}}
		if info.TableErr != nil {
			details = append(details, ui.Field{Key: "Decode", Value: info.TableErr.Error()})
		}
		p.Warning("No SPIFFS partition in the partition table", details)
	}
}

var makeCmd = &cobra.Command{
	Use:   "make",
	Short: "Build an image from the data directory using the local partition table",
	Long: `Pack the data directory into the image file, sized to the SPIFFS partition
found in the local partition table file. No device is needed, but the table
file must exist (run 'spiffsctl part' once to download it).`,
	Example: `  spiffsctl make
  spiffsctl make --table tables/4MB.bin -d www -f www.spiffs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}

		params := append(e.fileParams(), ui.Field{Key: "Table", Value: e.settings.TableFile})
		return e.run(cmd, "Make Image", spiffs.MakeSteps, params,
			func(ctx context.Context, ops *spiffs.Operations) ([]ui.Field, error) {
				r, err := ops.Make(ctx)
				if err != nil {
					return nil, err
				}
				return resultFields(r), nil
			})
	},
}

var unpackCmd = &cobra.Command{
	Use:     "unpack",
	Short:   "Unpack the image file into the data directory",
	Example: `  spiffsctl unpack -f backup.spiffs -d backup`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}

		return e.run(cmd, "Unpack Image", spiffs.UnpackSteps, e.fileParams(),
			func(ctx context.Context, ops *spiffs.Operations) ([]ui.Field, error) {
				if err := ops.Unpack(ctx); err != nil {
					return nil, err
				}
				return []ui.Field{{Key: "Data", Value: e.settings.DataDir}}, nil
			})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the files in the image file",
	Example: `  spiffsctl list -f data.spiffs`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}

		if err := e.operations(nil).List(cmd.Context()); err != nil {
			e.printer.Failure("List failed", err, troubleshooting(err))
			return err
		}
		return nil
	},
}

var verifySetupCmd = &cobra.Command{
	Use:   "verify-setup",
	Short: "Check that esptool and mkspiffs can be found and run",
	Long: `Resolve esptool and mkspiffs the same way the other commands do, run each
with its version flag, and check the serial port if one is given.`,
	Example: `  spiffsctl verify-setup
  spiffsctl verify-setup --port /dev/ttyUSB0 --tool-dir ./tools`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}

		e.printer.Header("Verify Setup", commandLine(cmd), []ui.Field{
			{Key: "Tool dir", Value: e.settings.ToolDir},
			{Key: "esptool", Value: e.settings.Esptool},
			{Key: "mkspiffs", Value: e.settings.Mkspiffs},
		})

		result := e.runner.CheckPrerequisites(cmd.Context(), requiredTools(e.settings), e.settings.Port)
		e.printer.Println(runner.FormatPrerequisiteReport(result))

		for _, check := range result.Checks {
			if !check.Available && check.Name != runner.SerialPortCheckName {
				return &runner.PrerequisiteError{
					Prerequisite: check.Name,
					Details:      check.Message,
					Err:          check.Error,
				}
			}
		}
		return nil
	},
}
