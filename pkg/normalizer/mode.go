package normalizer

import "fmt"

// Mode selects the audio source configuration for a session.
type Mode int

const (
	// ModeMicrophone captures from the default input device.
	ModeMicrophone Mode = iota

	// ModeSystemLoopback captures system output via a monitor device.
	ModeSystemLoopback

	// ModeBoth captures microphone and loopback and mixes them.
	ModeBoth

	// ModeFile reads from an audio file instead of a live device.
	ModeFile
)

// String returns the mode name as used in config files and CLI flags.
func (m Mode) String() string {
	switch m {
	case ModeMicrophone:
		return "microphone"
	case ModeSystemLoopback:
		return "loopback"
	case ModeBoth:
		return "both"
	case ModeFile:
		return "file"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name. Accepts the short aliases "mic" and
// "system" in addition to the canonical names.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "microphone", "mic":
		return ModeMicrophone, nil
	case "loopback", "system":
		return ModeSystemLoopback, nil
	case "both":
		return ModeBoth, nil
	case "file":
		return ModeFile, nil
	}
	return 0, fmt.Errorf("normalizer: unknown mode %q", s)
}
