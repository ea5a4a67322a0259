package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the spiffsctl config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as YAML",
	Long: `Print the settings spiffsctl would use, after applying the config file and
any flags given on this command line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(config.NewFileConfig(settings))
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to a config file",
	Long: `Write the settings given on the command line to a config file, so later
commands can omit them. The file is written to --config if given, otherwise
to the user config directory.`,
	Example: `  spiffsctl config init --port /dev/ttyUSB0 --speed 460800
  spiffsctl config init --config ./spiffsctl.yaml --data www`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFlag
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return &config.ConfigError{Field: "config", Reason: path + " already exists (use --force to overwrite)"}
		}

		// Start from defaults and flags only; an existing file is being replaced.
		settings := config.Settings{
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
		if err := settings.Validate(); err != nil {
			return err
		}

		if err := config.Save(path, config.NewFileConfig(settings)); err != nil {
			return err
		}

		ui.NewPrinter(cmd.OutOrStdout()).Success("Config written", []ui.Field{{Key: "Path", Value: path}})
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
