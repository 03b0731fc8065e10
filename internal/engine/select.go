package engine

import (
	"fmt"
	"os"
	"runtime"

	"github.com/podliner/podliner/internal/models"
)

// Select builds the engine named by preference. KindMock is never chosen
// here — it's a separate --mock-engine dev path that callers wire up with
// NewMockEngine directly, bypassing selection entirely. For "auto", the
// first available engine in SelectionOrder wins, skipping MediaFoundation
// on any OS but Windows. If an explicit non-auto preference names an engine
// that isn't available, Select falls back through every other kind in
// SelectionOrder, in that order, same as auto would, and returns the effective Kind so the caller can persist it for diagnostics.
func Select(preference models.EnginePreference, mockSocketDir string) (Engine, Kind, error) {
	want := preferenceToKind(preference)

	order := SelectionOrder
	if want != "" {
		order = reorderStartingAt(SelectionOrder, want)
	}

	for _, kind := range order {
		if !available(kind) {
			continue
		}
		eng, err := construct(kind, mockSocketDir)
		if err != nil {
			continue
		}
		return eng, kind, nil
	}
	return nil, "", fmt.Errorf("engine: no audio engine is available (tried %v)", order)
}

func preferenceToKind(p models.EnginePreference) Kind {
	switch p {
	case models.EngineLibVLC:
		return KindVLC
	case models.EngineMPV:
		return KindMPV
	case models.EngineFFplay:
		return KindFFplay
	case models.EngineMediaFoundation:
		return KindMediaFoundation
	default:
		return ""
	}
}

// reorderStartingAt rotates order so kind is tried first but every other
// candidate is still tried afterward in its original relative order —
// an unavailable explicit preference still falls back sensibly.
func reorderStartingAt(order []Kind, kind Kind) []Kind {
	out := make([]Kind, 0, len(order))
	out = append(out, kind)
	for _, k := range order {
		if k != kind {
			out = append(out, k)
		}
	}
	return out
}

func available(kind Kind) bool {
	switch kind {
	case KindVLC:
		return binaryAvailable("vlc")
	case KindMPV:
		return runtime.GOOS != "windows" && binaryAvailable("mpv")
	case KindFFplay:
		return binaryAvailable("ffplay")
	case KindMediaFoundation:
		return runtime.GOOS == "windows"
	default:
		return false
	}
}

func construct(kind Kind, mockSocketDir string) (Engine, error) {
	switch kind {
	case KindVLC:
		return newVLCSubprocessEngine(freePort()), nil
	case KindMPV:
		dir := mockSocketDir
		if dir == "" {
			dir = os.TempDir()
		}
		return newMPVEngine(dir), nil
	case KindFFplay:
		return newFFplayEngine(), nil
	case KindMediaFoundation:
		return newMediaFoundationEngine()
	default:
		return nil, fmt.Errorf("engine: unknown kind %q", kind)
	}
}

// freePort picks a loopback-only port for VLC's HTTP interface. VLC binds
// immediately on launch, so a brief race between picking the port here and
// VLC claiming it is inherent to this approach; the supervisor's restart
// backoff absorbs the rare bind failure.
func freePort() int {
	const base = 38970
	return base + os.Getpid()%1000
}
