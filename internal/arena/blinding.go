package arena

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	mathrand "math/rand/v2"
)

// newBlindingSeed returns a fresh 16-hex-char seed. Generated from
// crypto/rand so a rater cannot predict the flip, persisted with the
// judgment so an auditor can replay it.
func newBlindingSeed() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}

// seededRNG derives a deterministic generator from a blinding seed.
func seededRNG(seed string) *mathrand.Rand {
	sum := sha256.Sum256([]byte(seed))
	return mathrand.New(mathrand.NewPCG(
		binary.BigEndian.Uint64(sum[0:8]),
		binary.BigEndian.Uint64(sum[8:16]),
	))
}

// blind applies the seeded randomization to a pair's two final lists:
// a coin flip decides which system lands left, then each side is shuffled
// independently. Replaying with the same seed reproduces the presentation
// exactly.
func blind(seed, systemA, systemB string, listA, listB []string) (leftSystem, rightSystem string, leftList, rightList []string) {
	rng := seededRNG(seed)

	leftSystem, rightSystem = systemA, systemB
	leftList = append([]string(nil), listA...)
	rightList = append([]string(nil), listB...)
	if rng.IntN(2) == 1 {
		leftSystem, rightSystem = systemB, systemA
		leftList, rightList = rightList, leftList
	}

	rng.Shuffle(len(leftList), func(i, j int) {
		leftList[i], leftList[j] = leftList[j], leftList[i]
	})
	rng.Shuffle(len(rightList), func(i, j int) {
		rightList[i], rightList[j] = rightList[j], rightList[i]
	})
	return leftSystem, rightSystem, leftList, rightList
}
