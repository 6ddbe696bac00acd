package commands

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/voxtail/voxtail/cmd/voxtail/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage the CLI configuration file.

The file lives under the user config directory, e.g.
~/.config/voxtail/config.yaml on Linux. Flags always override
configured values.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			fmt.Println(cfgFile)
			return nil
		}
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(globalConfig)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with current values",
	Long: `Write the effective configuration to the config file, creating it
with defaults on first run. Pair with flags to seed values:

  voxtail config init --model ./models/small`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := config.Path()
			if err != nil {
				return err
			}
			path = p
		}

		cfg := globalConfig
		if v, _ := cmd.Flags().GetString("model"); v != "" {
			cfg.ModelPath = v
		}
		if v, _ := cmd.Flags().GetString("spk-model"); v != "" {
			cfg.SpeakerModelPath = v
		}
		if v, _ := cmd.Flags().GetString("mode"); v != "" {
			cfg.Mode = v
		}
		if v, _ := cmd.Flags().GetString("format"); v != "" {
			cfg.Format = v
		}
		if v, _ := cmd.Flags().GetString("profiles"); v != "" {
			cfg.ProfileDir = v
		}

		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("config written to " + path))
		return nil
	},
}

func init() {
	f := configInitCmd.Flags()
	f.String("model", "", "acoustic model directory")
	f.String("spk-model", "", "voice embedding model directory")
	f.String("mode", "", "default audio source")
	f.String("format", "", "default output format")
	f.String("profiles", "", "speaker profile directory")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
