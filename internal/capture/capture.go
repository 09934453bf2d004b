package capture

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Backend describes an encoder audio input.
type Backend interface {
	// Name is the configuration name of the backend.
	Name() string
	// InputArgs returns the encoder arguments that open the input.
	InputArgs() []string
}

// Backend names accepted by Select.
const (
	NamePulse        = "pulse"
	NameALSA         = "alsa"
	NameDirectShow   = "dshow"
	NameAVFoundation = "avfoundation"
	NameSilent       = "silent"
	NameAuto         = "auto"
)

// Pulse captures from a PulseAudio source, usually the monitor of the
// default sink.
type Pulse struct {
	Source string
}

func (p Pulse) Name() string { return NamePulse }

func (p Pulse) InputArgs() []string {
	return []string{"-f", "pulse", "-i", orDefault(p.Source, "default")}
}

// ALSA captures from an ALSA device.
type ALSA struct {
	Device string
}

func (a ALSA) Name() string { return NameALSA }

func (a ALSA) InputArgs() []string {
	return []string{"-f", "alsa", "-i", orDefault(a.Device, "default")}
}

// DirectShow captures a Windows audio device such as "Stereo Mix".
type DirectShow struct {
	Device string
}

func (d DirectShow) Name() string { return NameDirectShow }

func (d DirectShow) InputArgs() []string {
	return []string{"-f", "dshow", "-i", "audio=" + orDefault(d.Device, "Stereo Mix")}
}

// AVFoundation captures a macOS audio device by index or name.
type AVFoundation struct {
	Device string
}

func (a AVFoundation) Name() string { return NameAVFoundation }

func (a AVFoundation) InputArgs() []string {
	return []string{"-f", "avfoundation", "-i", ":" + orDefault(a.Device, "0")}
}

// Silent feeds a generated silent stereo track. It needs no audio device.
type Silent struct {
	SampleRate int
}

func (s Silent) Name() string { return NameSilent }

func (s Silent) InputArgs() []string {
	rate := s.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	return []string{"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", rate)}
}

// Names lists the accepted backend names.
func Names() []string {
	names := []string{NameAuto, NamePulse, NameALSA, NameDirectShow, NameAVFoundation, NameSilent}
	sort.Strings(names[1:])
	return names
}

// Select returns the backend called name configured with device. An empty
// name or "auto" picks the platform default for goos: Silent on windows,
// AVFoundation on darwin and Pulse elsewhere.
func Select(name, device, goos string) (Backend, error) {
	if goos == "" {
		goos = runtime.GOOS
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameAuto:
		switch goos {
		case "windows":
			return Silent{}, nil
		case "darwin":
			return AVFoundation{Device: device}, nil
		default:
			return Pulse{Source: device}, nil
		}
	case NamePulse:
		return Pulse{Source: device}, nil
	case NameALSA:
		return ALSA{Device: device}, nil
	case NameDirectShow:
		return DirectShow{Device: device}, nil
	case NameAVFoundation:
		return AVFoundation{Device: device}, nil
	case NameSilent:
		return Silent{}, nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
