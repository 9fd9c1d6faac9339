package motion

import "math"

// gaussianKernel returns normalized 1-D weights for an odd ksize, using the
// sigma OpenCV derives when sigma is left at zero.
func gaussianKernel(ksize int) []float32 {
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	half := ksize / 2
	k := make([]float32, ksize)
	var sum float64
	for i := range ksize {
		x := float64(i - half)
		v := math.Exp(-(x * x) / (2 * sigma * sigma))
		k[i] = float32(v)
		sum += v
	}
	for i := range k {
		k[i] = float32(float64(k[i]) / sum)
	}
	return k
}

// reflect101 maps an out-of-range index into [0,n) mirroring without
// repeating the edge sample (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// gaussianBlur applies a separable ksize×ksize Gaussian to an 8-bit plane.
func gaussianBlur(src []uint8, w, h, ksize int) []uint8 {
	k := gaussianKernel(ksize)
	half := ksize / 2

	tmp := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			var acc float32
			for j, kv := range k {
				acc += kv * float32(src[row+reflect101(x+j-half, w)])
			}
			tmp[row+x] = acc
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float32
			for j, kv := range k {
				acc += kv * tmp[reflect101(y+j-half, h)*w+x]
			}
			out[y*w+x] = saturate(acc)
		}
	}
	return out
}

func saturate(v float32) uint8 {
	v += 0.5
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// dilate3x3 grows set pixels by one in every direction (3×3 rectangular
// structuring element). Out-of-frame neighbours are ignored.
func dilate3x3(src []uint8, w, h int) []uint8 {
	horiz := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			if src[row+x] != 0 ||
				(x > 0 && src[row+x-1] != 0) ||
				(x+1 < w && src[row+x+1] != 0) {
				horiz[row+x] = 1
			}
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			if horiz[row+x] != 0 ||
				(y > 0 && horiz[row-w+x] != 0) ||
				(y+1 < h && horiz[row+w+x] != 0) {
				out[row+x] = 1
			}
		}
	}
	return out
}
