package stream

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"
)

type OpusPacketHandler func(pkt []byte) error

// Encoder turns 20 ms PCM frames into Opus packets with libopus.
type Encoder struct {
	cc     *astiav.CodecContext
	frame  *astiav.Frame
	packet *astiav.Packet
}

func NewEncoder(bitrate int64) (*Encoder, error) {
	codec := astiav.FindEncoderByName("libopus")
	if codec == nil {
		return nil, errors.New("libopus encoder not found (check ffmpeg installation)")
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("failed to allocate codec context for libopus")
	}
	cc.SetSampleRate(SampleRate)
	cc.SetChannelLayout(astiav.ChannelLayoutStereo)
	cc.SetSampleFormat(astiav.SampleFormatS16)
	cc.SetBitRate(bitrate)

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("frame_duration", "20", 0)
	_ = opts.Set("application", "audio", 0)

	if err := cc.Open(codec, opts); err != nil {
		cc.Free()
		return nil, fmt.Errorf("failed to open opus encoder: %w", err)
	}

	frame := astiav.AllocFrame()
	if frame == nil {
		cc.Free()
		return nil, errors.New("failed to allocate audio frame for encoder")
	}
	frame.SetSampleRate(SampleRate)
	frame.SetChannelLayout(astiav.ChannelLayoutStereo)
	frame.SetSampleFormat(astiav.SampleFormatS16)
	frame.SetNbSamples(FrameSize)
	if err := frame.AllocBuffer(0); err != nil {
		frame.Free()
		cc.Free()
		return nil, fmt.Errorf("failed to allocate frame buffer: %w", err)
	}

	pkt := astiav.AllocPacket()
	if pkt == nil {
		frame.Free()
		cc.Free()
		return nil, errors.New("failed to allocate packet for encoder")
	}

	slog.Debug("opus encoder ready", "bitrate", bitrate)
	return &Encoder{cc: cc, frame: frame, packet: pkt}, nil
}

func (e *Encoder) Close() {
	if e.packet != nil {
		e.packet.Free()
	}
	if e.frame != nil {
		e.frame.Free()
	}
	if e.cc != nil {
		e.cc.Free()
	}
}

// EncodeFrame expects exactly FrameBytes of interleaved s16le PCM.
func (e *Encoder) EncodeFrame(pcm []byte, onPacket OpusPacketHandler) error {
	if len(pcm) != FrameBytes {
		return fmt.Errorf("invalid PCM frame size: expected %d bytes, got %d", FrameBytes, len(pcm))
	}
	if err := e.frame.MakeWritable(); err != nil {
		return fmt.Errorf("frame not writable: %w", err)
	}
	if err := e.frame.Data().SetBytes(pcm, 0); err != nil {
		return fmt.Errorf("failed to set frame data bytes: %w", err)
	}
	if err := e.cc.SendFrame(e.frame); err != nil {
		return fmt.Errorf("failed to send frame to encoder: %w", err)
	}
	return e.drain(onPacket)
}

func (e *Encoder) Flush(onPacket OpusPacketHandler) error {
	if err := e.cc.SendFrame(nil); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return nil
		}
		return fmt.Errorf("failed to send flush frame: %w", err)
	}
	return e.drain(onPacket)
}

func (e *Encoder) drain(onPacket OpusPacketHandler) error {
	for {
		e.packet.Unref()
		if err := e.cc.ReceivePacket(e.packet); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("failed to receive opus packet: %w", err)
		}
		// the packet buffer is reused on the next receive
		data := append([]byte(nil), e.packet.Data()...)
		if err := onPacket(data); err != nil {
			return fmt.Errorf("packet handler error: %w", err)
		}
	}
}
