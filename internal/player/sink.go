package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/jukebox/internal/stream"
)

const (
	opusBitrate    = 128_000
	bufferPackets  = 50 // one second of audio
	sendTimeout    = 200 * time.Millisecond
	maxDropped     = 50
	voiceReadyWait = 5 * time.Second
)

// VoiceConnector joins voice channels through a discordgo session.
type VoiceConnector struct {
	s *discordgo.Session
}

func NewVoiceConnector(s *discordgo.Session) *VoiceConnector {
	return &VoiceConnector{s: s}
}

func (c *VoiceConnector) Join(ctx context.Context, guildID, channelID string) (Sink, error) {
	vc, err := c.s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &VoiceSink{vc: vc, guildID: guildID}, nil
}

// VoiceSink decodes a resource to PCM, applies its gain, encodes Opus and
// sends the packets to Discord paced at 20 ms.
type VoiceSink struct {
	vc      *discordgo.VoiceConnection
	guildID string
}

func (v *VoiceSink) Play(ctx context.Context, res *Resource) error {
	if err := v.waitReady(ctx); err != nil {
		return err
	}

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pcm, err := stream.StartPCMStream(pctx, res.Path)
	if err != nil {
		return err
	}
	enc, err := stream.NewEncoder(opusBitrate)
	if err != nil {
		pcm.Close()
		return err
	}
	defer enc.Close()

	buf := newOpusBuffer(bufferPackets)
	go func() {
		<-pctx.Done()
		buf.Close()
	}()

	var wg sync.WaitGroup
	var eof bool
	var prodErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer buf.MarkEOS()
		eof, prodErr = produce(pcm.Stdout(), enc, res, buf)
	}()

	_ = v.vc.Speaking(true)
	sendErr := v.send(pctx, res, buf)
	_ = v.vc.Speaking(false)

	buf.Close()
	wg.Wait()
	var decErr error
	if eof {
		decErr = pcm.Wait()
	} else {
		pcm.Close()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(sendErr, prodErr, decErr)
}

// produce encodes PCM from r into buf. eof reports whether the whole input
// was consumed.
func produce(r io.Reader, enc *stream.Encoder, res *Resource, buf *opusBuffer) (eof bool, err error) {
	br := bufio.NewReaderSize(r, 64*1024)
	frame := make([]byte, stream.FrameBytes)
	push := func(pkt []byte) error {
		if !buf.Push(pkt) {
			return errStopped
		}
		return nil
	}
	for {
		n, rerr := io.ReadFull(br, frame)
		if n > 0 {
			clear(frame[n:])
			stream.ApplyGain(frame, res.Gain())
			if err := enc.EncodeFrame(frame, push); err != nil {
				if errors.Is(err, errStopped) {
					return false, nil
				}
				return false, err
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			if err := enc.Flush(push); err != nil && !errors.Is(err, errStopped) {
				return false, err
			}
			return true, nil
		}
		if rerr != nil {
			return false, fmt.Errorf("read pcm: %w", rerr)
		}
	}
}

var errStopped = errors.New("buffer stopped")

func (v *VoiceSink) send(ctx context.Context, res *Resource, buf *opusBuffer) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	dropped := 0
	for {
		if err := res.WaitUnpaused(ctx); err != nil {
			return nil
		}
		pkt, ok := buf.Pop()
		if !ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		select {
		case <-ctx.Done():
			return nil
		case v.vc.OpusSend <- pkt:
			dropped = 0
		case <-time.After(sendTimeout):
			dropped++
			slog.Debug("dropped packet", "guildID", v.guildID, "consecutive", dropped, "buffered", buf.BufferedCount())
			if dropped >= maxDropped {
				return fmt.Errorf("voice connection stalled with %d packets buffered", buf.BufferedCount())
			}
		}
	}
}

func (v *VoiceSink) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(voiceReadyWait)
	for !v.ready() {
		if time.Now().After(deadline) {
			return errors.New("voice connection not ready")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

func (v *VoiceSink) ready() bool {
	v.vc.RLock()
	defer v.vc.RUnlock()
	return v.vc.Ready && v.vc.OpusSend != nil
}

// Close leaves the voice channel.
func (v *VoiceSink) Close() (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("voice disconnect panic recovered", "panic", r, "guildID", v.guildID)
			err = fmt.Errorf("voice disconnect panic: %v", r)
		}
	}()
	_ = v.vc.Speaking(false)
	return v.vc.Disconnect()
}
