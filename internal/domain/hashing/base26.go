package hashing

// Base-26 windows over a SHA-256 digest. Fourteen bits map to a letter
// triplet and nine bits to a letter dublet.
//
// The triplet table holds the 16384 three-letter words AAA..ZZZ in
// lexicographic order, leaving out every word starting with E and the words
// TAA..TTV. The dublet table is the first 512 words of AA..ZZ.

const (
	tripletCount = 1 << 14
	dubletCount  = 1 << 9
)

var (
	triplets [tripletCount]string
	dublets  [dubletCount]string
)

func init() {
	n := 0
	for a := byte('A'); a <= 'Z'; a++ {
		if a == 'E' {
			continue
		}
		for b := byte('A'); b <= 'Z'; b++ {
			for c := byte('A'); c <= 'Z'; c++ {
				if a == 'T' && int(b-'A')*26+int(c-'A') <= ('T'-'A')*26+('V'-'A') {
					continue
				}
				triplets[n] = string([]byte{a, b, c})
				n++
			}
		}
	}

	n = 0
	for a := byte('A'); a <= 'Z' && n < dubletCount; a++ {
		for b := byte('A'); b <= 'Z' && n < dubletCount; b++ {
			dublets[n] = string([]byte{a, b})
			n++
		}
	}
}

// triplet1 encodes bits 0..13.
func triplet1(a []byte) string {
	return triplets[int(a[0])|int(a[1]&0x3f)<<8]
}

// triplet2 encodes bits 14..27.
func triplet2(a []byte) string {
	return triplets[int(a[1]&0xc0)>>6|int(a[2])<<2|int(a[3]&0x0f)<<10]
}

// triplet3 encodes bits 28..41.
func triplet3(a []byte) string {
	return triplets[int(a[3]&0xf0)>>4|int(a[4])<<4|int(a[5]&0x03)<<12]
}

// triplet4 encodes bits 42..55.
func triplet4(a []byte) string {
	return triplets[int(a[5]&0xfc)>>2|int(a[6])<<6]
}

// dubletBits56To64 encodes bits 56..64.
func dubletBits56To64(a []byte) string {
	return dublets[int(a[7])|int(a[8]&0x01)<<8]
}

// dubletBits28To36 encodes bits 28..36.
func dubletBits28To36(a []byte) string {
	return dublets[int(a[3]&0xf0)>>4|int(a[4]&0x1f)<<4]
}
