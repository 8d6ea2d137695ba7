package codec

import (
	"slices"

	"github.com/petems/mic-relay/internal/audio"
)

// FrameChannels infers the channel count of a frame from its byte length.
// It returns 0 for anything that is not a mono or stereo frame.
func FrameChannels(frame []byte) int {
	switch len(frame) {
	case audio.FrameBytes(1):
		return 1
	case audio.FrameBytes(2):
		return 2
	default:
		return 0
	}
}

// Upmix duplicates each mono sample into an interleaved stereo pair, appending to dst.
func Upmix(mono []int16, dst []int16) []int16 {
	dst = slices.Grow(dst, len(mono)*2)
	for _, s := range mono {
		dst = append(dst, s, s)
	}
	return dst
}
