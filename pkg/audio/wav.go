package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zaf/g711"
)

// WAV format tags
const (
	formatPCM        = 0x0001
	formatALaw       = 0x0006
	formatMuLaw      = 0x0007
	formatExtensible = 0xFFFE
)

var (
	ErrNotWAV      = errors.New("not a RIFF/WAVE stream")
	ErrUnsupported = errors.New("unsupported WAV encoding")
)

// PCM is interleaved signed 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

type fmtChunk struct {
	format        uint16
	channels      int
	sampleRate    int
	bitsPerSample int
}

// DecodeWAV reads 8/16-bit PCM, A-law and µ-law WAV data into 16-bit PCM.
func DecodeWAV(data []byte) (*PCM, error) {
	if !IsWAV(data) {
		return nil, ErrNotWAV
	}

	var (
		format  *fmtChunk
		payload []byte
	)

	i := 12
	for i+8 <= len(data) {
		id := string(data[i : i+4])
		size := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		body := i + 8
		next := body + size
		if next > len(data) {
			if id != "data" {
				return nil, fmt.Errorf("invalid WAV: %q chunk exceeds buffer length", id)
			}
			// streamed recorders often leave the data size unset
			next = len(data)
		}

		switch id {
		case "fmt ":
			f, err := parseFmt(data[body:next])
			if err != nil {
				return nil, err
			}
			format = f
		case "data":
			payload = data[body:next]
		}

		// Account for padding to even boundary
		if size%2 != 0 {
			next++
		}
		i = next
	}

	if format == nil {
		return nil, errors.New("invalid WAV: fmt chunk not found")
	}
	if payload == nil {
		return nil, errors.New("invalid WAV: data chunk not found")
	}

	lpcm, err := toLPCM(format, payload)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(lpcm)/2)
	for j := range samples {
		samples[j] = int16(binary.LittleEndian.Uint16(lpcm[2*j:]))
	}

	return &PCM{
		Samples:    samples,
		SampleRate: format.sampleRate,
		Channels:   format.channels,
	}, nil
}

func parseFmt(b []byte) (*fmtChunk, error) {
	if len(b) < 16 {
		return nil, errors.New("invalid WAV: short fmt chunk")
	}

	f := &fmtChunk{
		format:        binary.LittleEndian.Uint16(b[0:2]),
		channels:      int(binary.LittleEndian.Uint16(b[2:4])),
		sampleRate:    int(binary.LittleEndian.Uint32(b[4:8])),
		bitsPerSample: int(binary.LittleEndian.Uint16(b[14:16])),
	}

	// WAVE_FORMAT_EXTENSIBLE keeps the real tag at the start of the sub-format GUID
	if f.format == formatExtensible && len(b) >= 26 {
		f.format = binary.LittleEndian.Uint16(b[24:26])
	}

	if f.channels <= 0 || f.sampleRate <= 0 {
		return nil, errors.New("invalid WAV: bad channel count or sample rate")
	}
	return f, nil
}

// toLPCM converts the data chunk to little-endian signed 16-bit samples.
func toLPCM(f *fmtChunk, payload []byte) ([]byte, error) {
	switch {
	case f.format == formatPCM && f.bitsPerSample == 16:
		return payload[:len(payload)&^1], nil
	case f.format == formatPCM && f.bitsPerSample == 8:
		out := make([]byte, 2*len(payload))
		for i, b := range payload {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(int(b)-128)<<8))
		}
		return out, nil
	case f.format == formatMuLaw:
		return g711.DecodeUlaw(payload), nil
	case f.format == formatALaw:
		return g711.DecodeAlaw(payload), nil
	default:
		return nil, fmt.Errorf("%w: format 0x%04x, %d bits", ErrUnsupported, f.format, f.bitsPerSample)
	}
}

// EncodeWAV writes p as a canonical 44-byte-header PCM16 WAV file.
func EncodeWAV(p *PCM) ([]byte, error) {
	if p.Channels <= 0 || p.Channels > 2 {
		return nil, errors.New("only mono (1) or stereo (2) channels supported")
	}
	if p.SampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if len(p.Samples)%p.Channels != 0 {
		return nil, errors.New("sample count doesn't match channel count")
	}

	const (
		bitsPerSample = 16
		subchunk1Size = 16
	)

	blockAlign := p.Channels * bitsPerSample / 8
	byteRate := p.SampleRate * blockAlign
	dataSize := len(p.Samples) * 2

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt sub-chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(subchunk1Size))
	binary.Write(buf, binary.LittleEndian, uint16(formatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(p.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(p.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	// data sub-chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(buf, binary.LittleEndian, p.Samples)

	return buf.Bytes(), nil
}
