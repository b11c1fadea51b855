package dedup

import (
	"fmt"
	"image"
	"math/bits"
	"os"
	"strconv"

	"github.com/corona10/goimagehash"

	_ "image/jpeg"
	_ "image/png"
)

// DefaultThreshold is the Hamming distance (in bits) at or below which
// two fingerprints are considered near-duplicates.
const DefaultThreshold = 5

// Fingerprint computes the perceptual hash of the image at path: the
// image is reduced to 8x8 grayscale and each pixel is thresholded against
// the mean (average hash). The result is a fixed-width 16-character hex
// string. Identical bytes always produce identical fingerprints.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image for fingerprint: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decoding image for fingerprint: %w", err)
	}

	return FingerprintImage(img)
}

// FingerprintImage computes the perceptual hash of an already-decoded image.
func FingerprintImage(img image.Image) (string, error) {
	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", fmt.Errorf("computing average hash: %w", err)
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// Distance returns the Hamming distance in bits between two fingerprints.
func Distance(a, b string) (int, error) {
	av, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", a, err)
	}
	bv, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", b, err)
	}
	return bits.OnesCount64(av ^ bv), nil
}

// FindDuplicate scans the fingerprint index (fingerprint -> stored path)
// and returns the path of a previously accepted image within threshold
// Hamming bits of hash, if any. The scan is O(index size); staging batches
// are small and this runs offline, not on a serving path.
func FindDuplicate(hash string, index map[string]string, threshold int) (string, bool) {
	for existing, path := range index {
		d, err := Distance(hash, existing)
		if err != nil {
			continue
		}
		if d <= threshold {
			return path, true
		}
	}
	return "", false
}
