package audio

import (
	"errors"
	"math"
)

const (
	// DefaultSilenceThreshold is the level below which a chunk counts as silence.
	DefaultSilenceThreshold = -50.0
	// DefaultChunkMillis is the step used when scanning for silence.
	DefaultChunkMillis = 10
	// DefaultHeadroom is how far below full scale Normalize puts the peak.
	DefaultHeadroom = 0.1

	fullScale = 32768.0
)

var ErrSilence = errors.New("audio contains only silence")

// Normalize scales p so that its peak sits headroomDB below full scale.
// Silent input is left untouched.
func Normalize(p *PCM, headroomDB float64) {
	var peak int
	for _, s := range p.Samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	if peak == 0 {
		return
	}

	target := fullScale * math.Pow(10, -headroomDB/20)
	gain := target / float64(peak)
	for i, s := range p.Samples {
		p.Samples[i] = clamp16(float64(s) * gain)
	}
}

// DBFS returns the RMS level of samples relative to full scale.
// Empty or all-zero input is -Inf.
func DBFS(samples []int16) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/fullScale)
}

// TrimSilence drops leading and trailing chunks of chunkMillis whose level is
// below thresholdDB. It returns ErrSilence when nothing is left.
func TrimSilence(p *PCM, thresholdDB float64, chunkMillis int) error {
	frames := p.Frames()
	step := p.SampleRate * chunkMillis / 1000
	if step <= 0 || frames == 0 {
		return ErrSilence
	}

	chunk := func(from, to int) []int16 {
		from, to = max(from, 0), min(to, frames)
		return p.Samples[from*p.Channels : to*p.Channels]
	}

	start := 0
	for start < frames && DBFS(chunk(start, start+step)) < thresholdDB {
		start += step
	}

	end := frames
	for end > start && DBFS(chunk(end-step, end)) < thresholdDB {
		end -= step
	}

	if start >= end {
		p.Samples = p.Samples[:0]
		return ErrSilence
	}

	p.Samples = p.Samples[start*p.Channels : end*p.Channels]
	return nil
}

// Preprocess prepares a WAV upload for speech recognition: normalise, trim
// silence, re-encode as PCM16. Data that is not WAV is returned unchanged.
func Preprocess(data []byte) ([]byte, error) {
	if !IsWAV(data) {
		return data, nil
	}

	p, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}

	Normalize(p, DefaultHeadroom)
	if err := TrimSilence(p, DefaultSilenceThreshold, DefaultChunkMillis); err != nil {
		return nil, err
	}

	return EncodeWAV(p)
}

func clamp16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(math.Round(v))
	}
}
