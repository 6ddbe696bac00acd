package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxtail/voxtail/pkg/capture/portaudio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Long: `List the audio capture devices PortAudio can see.

Devices marked "loopback" record the system output and are used by
--mode loopback and --mode both. If none is listed, enable your
platform's monitor/loopback endpoint (e.g. a PulseAudio monitor
source, or "Stereo Mix" on Windows).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := portaudio.ListDevices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println(dimStyle.Render("no capture devices found"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCHANNELS\tRATE\tKIND")
		for _, d := range devices {
			kind := "input"
			if d.Loopback {
				kind = "loopback"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", d.ID, d.Name, d.Channels, d.SampleRate, kind)
		}
		return w.Flush()
	},
}
