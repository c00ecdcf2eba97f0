package stream

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/jukebox/internal/utils"
	"golang.org/x/sync/errgroup"
)

// TranscodeArgs makes ffmpeg read any audio container on stdin and write a
// loudness-normalized Opus/Ogg file to dst.
func TranscodeArgs(dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-af", "loudnorm",
		"-ac", "2",
		"-ar", "48000",
		"-c:a", "libopus",
		"-b:a", "128k",
		"-f", "ogg",
		"-y", dst,
	}
}

// Downloader pipes a Fetcher into ffmpeg.
type Downloader struct {
	fetch Fetcher
}

func NewDownloader(f Fetcher) *Downloader {
	return &Downloader{fetch: f}
}

func (d *Downloader) Download(ctx context.Context, id, dst string) error {
	ff := utils.ExecWith(ctx, "ffmpeg", TranscodeArgs(dst)...)
	stdin, err := ff.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	var stderr bytes.Buffer
	ff.Stderr = &stderr
	if err := ff.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		return d.fetch.Fetch(ctx, id, stdin)
	})
	g.Go(func() error {
		if err := ff.Wait(); err != nil {
			return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	})
	return g.Wait()
}
