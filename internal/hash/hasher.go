package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"archivelinker/internal/models"
)

// Hasher computes the per-image fingerprints.
type Hasher struct{}

// NewHasher creates a new Hasher
func NewHasher() *Hasher {
	return &Hasher{}
}

// Fingerprint computes all fingerprints and metadata for one file.
//
// The byte-level digests (content digest, weak digest) are computed from the
// raw file bytes and are present whenever the file is readable. The
// perceptual hash, resolution and unique-color count depend on decoding and
// are left absent when decoding fails; a decode failure is not an error.
func (h *Hasher) Fingerprint(path string) (*models.ImageRecord, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sum := sha256.Sum256(data)
	rec := &models.ImageRecord{
		Path:          path,
		ContentDigest: hex.EncodeToString(sum[:]),
		WeakDigest:    ByteAverageHash(data),
		FileSize:      stat.Size(),
		ModTime:       stat.ModTime(),
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Undecodable image: byte-level digests stand, pixel-derived
		// fields stay absent. EXIF may still carry the resolution.
		if x, y, ok := exifResolution(data); ok {
			rec.XResolution = x
			rec.YResolution = y
			rec.HasResolution = true
		}
		return rec, nil
	}

	rec.Format = strings.ToLower(format)

	bounds := img.Bounds()
	rec.XResolution = bounds.Dx()
	rec.YResolution = bounds.Dy()
	rec.HasResolution = true

	if ph, err := goimagehash.PerceptionHash(img); err == nil {
		rec.Perceptual = ph.GetHash()
		rec.HasPerceptual = true
	}

	rec.UniqueColors = UniqueColors(img)
	rec.HasColors = true

	return rec, nil
}

// FingerprintWithTimeout fingerprints a file with a timeout.
func (h *Hasher) FingerprintWithTimeout(path string, timeout time.Duration) (*models.ImageRecord, error) {
	done := make(chan struct{})
	var rec *models.ImageRecord
	var err error

	go func() {
		rec, err = h.Fingerprint(path)
		close(done)
	}()

	select {
	case <-done:
		return rec, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout fingerprinting image: %s", path)
	}
}

// exifResolution reads the pixel dimensions from EXIF metadata. Used as a
// fallback for files whose pixel data cannot be decoded.
func exifResolution(data []byte) (x, y int, ok bool) {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}

	xTag, err := meta.Get(exif.PixelXDimension)
	if err != nil {
		return 0, 0, false
	}
	yTag, err := meta.Get(exif.PixelYDimension)
	if err != nil {
		return 0, 0, false
	}

	xv, err := xTag.Int(0)
	if err != nil {
		return 0, 0, false
	}
	yv, err := yTag.Int(0)
	if err != nil {
		return 0, 0, false
	}

	if xv < 0 || yv < 0 {
		return 0, 0, false
	}
	return xv, yv, true
}

// UniqueColors counts the distinct 8-bit RGB colors in an image.
func UniqueColors(img image.Image) int {
	seen := make(map[uint32]struct{})
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			key := (r>>8)<<16 | (g>>8)<<8 | b>>8
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}

// IsSupportedImage checks if a file is a supported image format
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif":
		return true
	default:
		return false
	}
}
