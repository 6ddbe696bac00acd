package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxtail/voxtail/pkg/capture/portaudio"
	"github.com/voxtail/voxtail/pkg/eventfeed"
	"github.com/voxtail/voxtail/pkg/normalizer"
	"github.com/voxtail/voxtail/pkg/recognizer"
	"github.com/voxtail/voxtail/pkg/recognizer/vosk"
	"github.com/voxtail/voxtail/pkg/session"
	"github.com/voxtail/voxtail/pkg/speaker"
	"github.com/voxtail/voxtail/pkg/summarize"
	"github.com/voxtail/voxtail/pkg/transcript"
)

var (
	transcribeMode    string
	transcribeInput   string
	transcribeModel   string
	transcribeSpk     string
	transcribeOut     string
	transcribeFormat  string
	transcribeTitle   string
	transcribeListen  string
	transcribeProfile string
	transcribeSummary bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Run a transcription session",
	Long: `Run a transcription session against the chosen audio source.

Live sources (mic, loopback, both) run until interrupted with Ctrl-C.
File sources run until the file is exhausted. In both cases the
finished transcript is written to the output file, or to stdout when
no output is given.

With --spk-model, utterances are attributed to speakers by voice.
Without it every utterance is attributed to "Speaker 1".

With --summarize, the finished transcript is condensed into meeting
notes via the OpenAI-compatible endpoint configured under the openai
config section; the notes are printed after the transcript.

Examples:
  voxtail transcribe --model ./models/small
  voxtail transcribe --mode both --spk-model ./models/spk -o call.srt
  voxtail transcribe --mode file --input talk.mp3 --format srt -o talk.srt
  voxtail transcribe --mode file --input standup.wav -o standup.txt --summarize`,
	RunE: runTranscribe,
}

func init() {
	f := transcribeCmd.Flags()
	f.StringVarP(&transcribeMode, "mode", "m", "", "audio source: mic, loopback, both or file")
	f.StringVarP(&transcribeInput, "input", "i", "", "input audio file (.wav, .mp3, .pcm), for --mode file")
	f.StringVar(&transcribeModel, "model", "", "acoustic model directory")
	f.StringVar(&transcribeSpk, "spk-model", "", "voice embedding model directory")
	f.StringVarP(&transcribeOut, "output", "o", "", "transcript output file (default: stdout)")
	f.StringVar(&transcribeFormat, "format", "", "output format: txt or srt (default: by output extension)")
	f.StringVar(&transcribeTitle, "title", "", "transcript title")
	f.StringVar(&transcribeListen, "listen", "", "serve live events over WebSocket on this address")
	f.StringVar(&transcribeProfile, "profiles", "", "directory for persisted speaker profiles")
	f.BoolVar(&transcribeSummary, "summarize", false, "print AI meeting notes after the transcript")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	modelPath := firstOf(transcribeModel, globalConfig.ModelPath)
	if modelPath == "" {
		return fmt.Errorf("--model is required (or set model_path in the config)")
	}
	spkPath := firstOf(transcribeSpk, globalConfig.SpeakerModelPath)

	mode, err := normalizer.ParseMode(firstOf(transcribeMode, globalConfig.Mode))
	if err != nil {
		return err
	}
	if mode == normalizer.ModeFile && transcribeInput == "" {
		return fmt.Errorf("--input is required with --mode file")
	}

	format, err := pickFormat(transcribeFormat, transcribeOut)
	if err != nil {
		return err
	}

	// Wire the pipeline.
	norm := normalizer.New(normalizer.WithOpener(&portaudio.Opener{}))
	rec := recognizer.New(vosk.NewEngine)
	reg := speaker.NewRegistry()
	orch := session.New(norm, rec, reg)
	defer rec.Close()

	store, err := openProfileStore(firstOf(transcribeProfile, globalConfig.ProfileDir))
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintln(os.Stderr, dimStyle.Render("loading models..."))
	if err := orch.Initialize(modelPath, spkPath); err != nil {
		return err
	}

	attachConsole(orch)
	if listen := firstOf(transcribeListen, globalConfig.Listen); listen != "" {
		if err := serveFeed(orch, listen); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	orch.OnStateChange(func(running bool) {
		if !running {
			close(done)
		}
	})

	if err := orch.Start(mode, transcribeInput); err != nil {
		return err
	}
	// Profiles seed the registry after Start, which clears it.
	if err := seedRegistry(reg, store); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	select {
	case <-interrupt:
		fmt.Fprintln(os.Stderr, dimStyle.Render("stopping..."))
		orch.Stop()
		<-done
	case <-done:
	}

	if err := store.Save(reg.Profiles()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("profiles:"), err)
	}

	if err := writeTranscript(orch, format); err != nil {
		return err
	}
	if transcribeSummary {
		return printSummary(cmd.Context(), os.Stdout, orch.Segments())
	}
	return nil
}

// printSummary condenses the finished timeline into meeting notes using
// the configured OpenAI-compatible endpoint.
func printSummary(ctx context.Context, w io.Writer, segments []transcript.Segment) error {
	cfg := globalConfig.OpenAI
	if cfg.APIKey == "" {
		return fmt.Errorf("--summarize requires openai.api_key in the config")
	}
	s, err := summarize.New(summarize.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, dimStyle.Render("summarizing..."))
	notes, err := s.Summarize(ctx, segments)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Summary"))
	fmt.Fprintln(w, notes)
	return nil
}

// attachConsole prints live progress to stderr so stdout stays clean
// for the transcript.
func attachConsole(orch *session.Orchestrator) {
	orch.OnPartial(func(text string) {
		printVerbose("... %s", text)
	})
	orch.OnSegment(func(seg transcript.Segment) {
		fmt.Fprintf(os.Stderr, "%s %s\n", speakerStyle.Render("["+seg.Speaker+"]"), seg.Text)
	})
	orch.OnError(func(err error) {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
	})
}

func serveFeed(orch *session.Orchestrator, addr string) error {
	feed := eventfeed.New()
	if err := feed.Attach(orch); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/events", feed)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("feed:"), err)
		}
	}()
	printVerbose("event feed on ws://%s/events", addr)
	return nil
}

func openProfileStore(dir string) (speaker.Store, error) {
	if dir == "" {
		return speaker.NewMemoryStore(), nil
	}
	return speaker.OpenBadgerStore(dir)
}

func seedRegistry(reg *speaker.Registry, store speaker.Store) error {
	profiles, err := store.Load()
	if err != nil {
		return err
	}
	if len(profiles) > 0 {
		reg.Load(profiles)
		printVerbose("loaded %d speaker profiles", len(profiles))
	}
	return nil
}

func writeTranscript(orch *session.Orchestrator, format transcript.Format) error {
	title := transcribeTitle
	if title == "" && transcribeOut != "" {
		title = transcribeOut
	}

	out := os.Stdout
	if transcribeOut != "" {
		f, err := os.Create(transcribeOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := orch.Export(out, format, title); err != nil {
		return err
	}
	if transcribeOut != "" {
		fmt.Fprintln(os.Stderr, titleStyle.Render("transcript written to "+transcribeOut))
	}
	return nil
}

// pickFormat resolves the export format from the flag, the output file
// extension, then the configured default.
func pickFormat(flag, outPath string) (transcript.Format, error) {
	if flag != "" {
		return transcript.ParseFormat(flag)
	}
	if outPath != "" {
		if f, err := transcript.ParseFormat(filepath.Ext(outPath)); err == nil {
			return f, nil
		}
	}
	return transcript.ParseFormat(globalConfig.Format)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
