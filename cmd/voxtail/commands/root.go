package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/voxtail/voxtail/cmd/voxtail/internal/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Global configuration, loaded before any command runs.
	globalConfig config.Config
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f7768e"))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxtail",
	Short: "Live transcription with speaker identification",
	Long: `Voxtail transcribes speech from the microphone, the system audio
output or an audio file, attributes each utterance to a speaker by
voice, and exports the result as plain text or SubRip subtitles.

Examples:
  # Transcribe the microphone until Ctrl-C
  voxtail transcribe --model ./models/small

  # Transcribe a call: microphone mixed with system playback
  voxtail transcribe --mode both --spk-model ./models/spk -o call.srt

  # Transcribe a recording
  voxtail transcribe --mode file --input meeting.wav -o meeting.txt

Configuration is read from ` + "`voxtail config path`" + ` and can be
overridden per run with flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/voxtail/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(speakersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		p, err := config.Path()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("config:"), err)
			globalConfig = config.Default()
			return
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("config:"), err)
	}
	globalConfig = cfg
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf(format, args...)))
	}
}
