package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"

	"github.com/sonroyaalmerol/jukebox/internal/utils"
)

const (
	SampleRate = 48000
	Channels   = 2
	FrameSize  = 960 // samples per channel in 20 ms
	FrameBytes = FrameSize * Channels * 2
)

// PCMStreamer decodes a local audio file to s16le 48 kHz stereo with ffmpeg.
type PCMStreamer struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	cancel context.CancelFunc
}

func StartPCMStream(ctx context.Context, path string) (*PCMStreamer, error) {
	ctx2, cancel := context.WithCancel(ctx)

	cmd := utils.ExecWith(ctx2, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	// skips must not wait out the interrupt grace period
	cmd.Cancel = func() error { return cmd.Process.Kill() }
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	return &PCMStreamer{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		cancel: cancel,
	}, nil
}

func (s *PCMStreamer) Stdout() io.Reader {
	return s.stdout
}

// Wait blocks until ffmpeg exits on its own and reports its exit error
// together with stderr.
func (s *PCMStreamer) Wait() error {
	defer s.cancel()
	if err := s.cmd.Wait(); err != nil {
		if msg := s.stderr.String(); msg != "" {
			return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// Close kills ffmpeg and reaps it.
func (s *PCMStreamer) Close() {
	s.cancel()
	_ = s.cmd.Wait()
}

// ApplyGain scales interleaved s16le samples in place, saturating at the
// int16 range.
func ApplyGain(pcm []byte, gain float64) {
	if gain == 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		v := float64(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
		v = math.Round(v * gain)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		u := uint16(int16(v))
		pcm[i] = byte(u)
		pcm[i+1] = byte(u >> 8)
	}
}
