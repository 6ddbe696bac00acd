package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxtail/voxtail/pkg/speaker"
)

var speakersCmd = &cobra.Command{
	Use:   "speakers",
	Short: "Manage persisted speaker profiles",
	Long: `Manage the speaker profiles persisted between sessions.

Profiles are stored in the directory given by --profiles or the
profile_dir config entry. Sessions started with a profile store
recognize returning speakers under their existing labels.`,
}

var speakersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored speaker profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireProfileStore()
		if err != nil {
			return err
		}
		defer store.Close()

		profiles, err := store.Load()
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println(dimStyle.Render("no stored profiles"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LABEL\tSEGMENTS\tDIMENSIONS")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%d\t%d\n", p.Label, p.Count, len(p.Vector))
		}
		return w.Flush()
	},
}

var speakersClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored speaker profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireProfileStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(nil); err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("speaker profiles cleared"))
		return nil
	},
}

var speakersProfileDir string

func init() {
	speakersCmd.PersistentFlags().StringVar(&speakersProfileDir, "profiles", "", "directory of persisted speaker profiles")
	speakersCmd.AddCommand(speakersListCmd)
	speakersCmd.AddCommand(speakersClearCmd)
}

func requireProfileStore() (speaker.Store, error) {
	dir := firstOf(speakersProfileDir, globalConfig.ProfileDir)
	if dir == "" {
		return nil, fmt.Errorf("no profile directory: use --profiles or set profile_dir in the config")
	}
	return speaker.OpenBadgerStore(dir)
}
