package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// ConvertPCM16ToInt16 converts byte slice to int16 samples.
func ConvertPCM16ToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// ConvertInt16ToPCM16 converts int16 samples to byte slice.
func ConvertInt16ToPCM16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// Resample resamples audio from srcRate to dstRate by linear interpolation.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(dstRate) / float64(srcRate)
	newLen := int(float64(len(samples)) * ratio)
	result := make([]int16, newLen)

	for i := 0; i < newLen; i++ {
		srcIdx := float64(i) / ratio
		idx := int(srcIdx)
		if idx >= len(samples)-1 {
			result[i] = samples[len(samples)-1]
		} else {
			frac := srcIdx - float64(idx)
			result[i] = int16(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
		}
	}

	return result
}

// toneRamp is the fade in/out length that keeps a tone from clicking.
const toneRamp = 5 * time.Millisecond

// Tone synthesizes a sine wave as PCM16 mono at amplitude 0..1.
func Tone(freq float64, d time.Duration, sampleRate int, amplitude float64) []byte {
	n := int(d.Seconds() * float64(sampleRate))
	ramp := int(toneRamp.Seconds() * float64(sampleRate))
	if ramp*2 > n {
		ramp = n / 2
	}

	samples := make([]int16, n)
	for i := range samples {
		gain := amplitude
		switch {
		case i < ramp:
			gain *= float64(i) / float64(ramp)
		case i >= n-ramp:
			gain *= float64(n-1-i) / float64(ramp)
		}
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		samples[i] = int16(v * gain * math.MaxInt16)
	}
	return ConvertInt16ToPCM16(samples)
}
