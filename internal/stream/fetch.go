package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kkdai/youtube/v2"
	ytdlp "github.com/lrstanley/go-ytdlp"
)

// Fetcher writes the best available audio stream of a video to w.
type Fetcher interface {
	Fetch(ctx context.Context, id string, w io.Writer) error
}

// NewFetcher picks a fetcher by name: "ytdlp" (default) or "kkdai".
func NewFetcher(name string, opts YtdlpOptions) Fetcher {
	if strings.EqualFold(name, "kkdai") {
		return &KkdaiFetcher{client: &youtube.Client{}}
	}
	return &YtdlpFetcher{opts: opts}
}

type YtdlpFetcher struct {
	opts YtdlpOptions
}

func (y *YtdlpFetcher) Fetch(ctx context.Context, id string, w io.Writer) error {
	EnsureYtdlp(ctx)
	cmd := y.opts.apply(ytdlp.New()).
		Format("bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best").
		Output("-").
		NoSimulate().
		NoPart().
		NoPlaylist().
		BuildCommand(ctx, WatchURL(id))

	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")

	if err := cmd.Run(); err != nil {
		return wrapYtdlpErr("fetch", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}
	return nil
}

type KkdaiFetcher struct {
	client *youtube.Client
}

func (k *KkdaiFetcher) Fetch(ctx context.Context, id string, w io.Writer) error {
	video, err := k.client.GetVideoContext(ctx, id)
	if err != nil {
		return fmt.Errorf("kkdai get video: %w", err)
	}
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return errors.New("kkdai: no audio formats found for video")
	}
	rc, _, err := k.client.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return fmt.Errorf("kkdai get stream: %w", err)
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("kkdai copy: %w", err)
	}
	return nil
}
