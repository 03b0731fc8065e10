package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"sync"
	"time"

	"github.com/podliner/podliner/internal/models"
)

const (
	vlcHTTPPassword = "podliner"
	vlcPollInterval = time.Second
	vlcHTTPTimeout  = 3 * time.Second
)

// vlcSubprocessEngine drives VLC as a subprocess with its built-in HTTP
// control interface, polling requests/status.json for playback state. It is
// the backend Select constructs for KindVLC, whether or not the CGO libvlc
// binding in vlc_cgo.go is compiled in — it needs only the `vlc` binary on
// PATH.
type vlcSubprocessEngine struct {
	*stateBase
	sup      *supervisor
	port     int
	client   *http.Client
	pollStop context.CancelFunc
	pollWg   sync.WaitGroup
}

// newVLCSubprocessEngine constructs the engine without starting anything;
// Play launches VLC with the requested URL.
func newVLCSubprocessEngine(port int) *vlcSubprocessEngine {
	caps := models.PlayerCapabilities(0).With(
		models.CapPlay, models.CapPause, models.CapStop, models.CapSeek,
		models.CapVolume, models.CapSpeed, models.CapNetwork, models.CapLocal,
	)
	return &vlcSubprocessEngine{
		stateBase: newStateBase(caps),
		port:      port,
		client:    &http.Client{Timeout: vlcHTTPTimeout},
	}
}

func (e *vlcSubprocessEngine) Name() string { return string(KindVLC) }

func (e *vlcSubprocessEngine) Play(ctx context.Context, mediaURL string, startMs int64) error {
	if e.sup != nil {
		_ = e.sup.Stop()
		e.stopPolling()
	}

	e.sup = newSupervisor("vlc", func() *exec.Cmd {
		return exec.Command(findBinary("vlc"),
			"--intf", "http",
			"--http-host", "127.0.0.1",
			"--http-port", fmt.Sprintf("%d", e.port),
			"--http-password", vlcHTTPPassword,
			"--no-video",
			mediaURL,
		)
	})
	if err := e.sup.Start(ctx); err != nil {
		return fmt.Errorf("vlc: start: %w", err)
	}

	e.setState(func(st *models.PlayerState) {
		st.IsPlaying = true
		st.Position = 0
	})

	pollCtx, cancel := context.WithCancel(context.Background())
	e.pollStop = cancel
	e.pollWg.Add(1)
	go e.pollLoop(pollCtx)

	if startMs > 0 {
		go func() {
			time.Sleep(1500 * time.Millisecond)
			_ = e.SeekTo(ctx, time.Duration(startMs)*time.Millisecond)
		}()
	}
	return nil
}

func (e *vlcSubprocessEngine) Stop(ctx context.Context) error {
	e.stopPolling()
	if e.sup == nil {
		return nil
	}
	err := e.sup.Stop()
	e.sup = nil
	e.setState(func(st *models.PlayerState) { st.IsPlaying = false })
	return err
}

func (e *vlcSubprocessEngine) TogglePause(ctx context.Context) error {
	return e.command(ctx, "pl_pause", nil)
}

func (e *vlcSubprocessEngine) SeekTo(ctx context.Context, at time.Duration) error {
	secs := int64(at / time.Second)
	return e.command(ctx, "seek", map[string]string{"val": fmt.Sprintf("%d", secs)})
}

func (e *vlcSubprocessEngine) SeekRelative(ctx context.Context, delta time.Duration) error {
	secs := int64(delta / time.Second)
	sign := "+"
	if secs < 0 {
		sign = ""
	}
	return e.command(ctx, "seek", map[string]string{"val": fmt.Sprintf("%s%d", sign, secs)})
}

func (e *vlcSubprocessEngine) SetVolume(ctx context.Context, volume0To100 int) error {
	v := models.ClampVolume(volume0To100)
	// VLC's HTTP volume range is 0..256 for 0..100%.
	vlcVol := v * 256 / 100
	if err := e.command(ctx, "volume", map[string]string{"val": fmt.Sprintf("%d", vlcVol)}); err != nil {
		return err
	}
	e.setState(func(st *models.PlayerState) { st.Volume = v })
	return nil
}

func (e *vlcSubprocessEngine) SetSpeed(ctx context.Context, speed float64) error {
	s := models.ClampSpeed(speed, models.EngineMinSpeed, models.EngineMaxSpeed)
	if err := e.command(ctx, "rate", map[string]string{"val": fmt.Sprintf("%.3f", s)}); err != nil {
		return err
	}
	e.setState(func(st *models.PlayerState) { st.Speed = s })
	return nil
}

func (e *vlcSubprocessEngine) Close() error {
	e.stopPolling()
	if e.sup != nil {
		return e.sup.Stop()
	}
	return nil
}

func (e *vlcSubprocessEngine) stopPolling() {
	if e.pollStop != nil {
		e.pollStop()
		e.pollWg.Wait()
		e.pollStop = nil
	}
}

func (e *vlcSubprocessEngine) command(ctx context.Context, cmd string, args map[string]string) error {
	q := url.Values{}
	q.Set("command", cmd)
	for k, v := range args {
		q.Set(k, v)
	}
	reqURL := fmt.Sprintf("http://127.0.0.1:%d/requests/status.json?%s", e.port, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth("", vlcHTTPPassword)
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("vlc: command %s: %w", cmd, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// vlcStatus is the subset of VLC's status.json this backend reads.
type vlcStatus struct {
	State  string  `json:"state"`
	Length int64   `json:"length"` // seconds
	Time   int64   `json:"time"`   // seconds
	Rate   float64 `json:"rate"`
	Volume int     `json:"volume"`
}

func (e *vlcSubprocessEngine) pollLoop(ctx context.Context) {
	defer e.pollWg.Done()
	ticker := time.NewTicker(vlcPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pollOnce(ctx)
		}
	}
}

func (e *vlcSubprocessEngine) pollOnce(ctx context.Context) {
	reqURL := fmt.Sprintf("http://127.0.0.1:%d/requests/status.json", e.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return
	}
	req.SetBasicAuth("", vlcHTTPPassword)
	resp, err := e.client.Do(req)
	if err != nil {
		slog.Debug("vlc: status poll failed", "err", err)
		return
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	var status vlcStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return
	}

	e.setState(func(st *models.PlayerState) {
		st.IsPlaying = status.State == "playing"
		st.Position = time.Duration(status.Time) * time.Second
		length := time.Duration(status.Length) * time.Second
		st.Length = &length
		if status.Rate > 0 {
			st.Speed = status.Rate
		}
		if status.Volume > 0 {
			st.Volume = models.ClampVolume(status.Volume * 100 / 256)
		}
	})
}
