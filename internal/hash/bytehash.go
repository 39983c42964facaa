package hash

// ByteAverageHash computes a 64-bit average hash over raw file bytes.
//
// The file is split into 64 roughly equal blocks; bit i is set when the mean
// of block i exceeds the mean of the whole file. Like a pixel average hash it
// is cheap and collision-tolerant, but because it reads raw bytes it never
// depends on the file being a decodable image. It serves as the secondary
// exact-duplicate signal cross-checking the content digest.
func ByteAverageHash(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}

	var sums [64]uint64
	var counts [64]int

	blockSize := (len(data) + 63) / 64
	for i, b := range data {
		idx := i / blockSize
		sums[idx] += uint64(b)
		counts[idx]++
	}

	var total uint64
	for _, s := range sums {
		total += s
	}
	mean := float64(total) / float64(len(data))

	var h uint64
	for i := 0; i < 64; i++ {
		if counts[i] == 0 {
			continue
		}
		if float64(sums[i])/float64(counts[i]) > mean {
			h |= 1 << (63 - i)
		}
	}
	return h
}
