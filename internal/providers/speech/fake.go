package speech

import (
	"context"
	"encoding/binary"
	"strings"

	"luma/internal/pkg/errors"
)

// FakeClient synthesizes silent WAV audio sized to the estimated
// narration length, for local development and tests.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

const (
	fakeSampleRate = 8000 // 8 kHz mono, 8-bit: one byte per sample
)

func (f *FakeClient) Synthesize(_ context.Context, req *Request) (*Synthesis, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.Validation("synthesis text is required")
	}
	secs := EstimateDuration(req.Text)
	return &Synthesis{
		Audio:           silentWAV(secs),
		ContentType:     "audio/wav",
		DurationSeconds: secs,
		Estimated:       true,
	}, nil
}

func (f *FakeClient) Voices(context.Context) ([]Voice, error) {
	return []Voice{{ID: DefaultVoiceID, Name: "Standard (en-US)"}}, nil
}

// silentWAV builds a minimal valid WAV file of the given length.
func silentWAV(seconds int) []byte {
	dataLen := seconds * fakeSampleRate
	buf := make([]byte, 44+dataLen)

	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataLen))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(buf[20:], 1)  // PCM format
	binary.LittleEndian.PutUint16(buf[22:], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:], fakeSampleRate)
	binary.LittleEndian.PutUint32(buf[28:], fakeSampleRate) // byte rate
	binary.LittleEndian.PutUint16(buf[32:], 1)              // block align
	binary.LittleEndian.PutUint16(buf[34:], 8)              // bits per sample
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))

	// 8-bit WAV silence is the midpoint, not zero.
	for i := 44; i < len(buf); i++ {
		buf[i] = 0x80
	}
	return buf
}
