package audio

import "slices"

// BytesToS16 decodes little-endian signed 16-bit samples, appending to dst.
func BytesToS16(src []byte, dst []int16) []int16 {
	n := len(src) / 2
	dst = slices.Grow(dst, n)
	for i := 0; i < n; i++ {
		dst = append(dst, int16(src[i*2])|(int16(src[i*2+1])<<8))
	}
	return dst
}

func leS16SliceToBytes(src []int16, dst []byte) []byte {
	dst = slices.Grow(dst, len(src)*2)
	for i := 0; i < len(src); i++ {
		dst = append(dst, byte(src[i]), byte(src[i]>>8))
	}
	return dst
}
