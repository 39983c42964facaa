package models

import "time"

// ImageRecord holds the fingerprints and metadata computed for one file.
// Records are built once per analysis run and read-only afterward.
type ImageRecord struct {
	ID            int64     `json:"id"`
	Path          string    `json:"path"`
	ContentDigest string    `json:"content_digest"`       // SHA-256 of raw file bytes
	WeakDigest    uint64    `json:"weak_digest"`          // block-average hash of raw file bytes
	Perceptual    uint64    `json:"perceptual,omitempty"` // pHash of decoded pixels
	HasPerceptual bool      `json:"has_perceptual"`       // false when the image could not be decoded
	XResolution   int       `json:"x_resolution,omitempty"`
	YResolution   int       `json:"y_resolution,omitempty"`
	HasResolution bool      `json:"has_resolution"`
	UniqueColors  int       `json:"unique_colors,omitempty"`
	HasColors     bool      `json:"has_colors"`
	Format        string    `json:"format,omitempty"`
	FileSize      int64     `json:"file_size"`
	ModTime       time.Time `json:"mod_time"`
}

// Hashed reports whether the byte-level digests are present. Records without
// them are excluded from all grouping.
func (r *ImageRecord) Hashed() bool {
	return r.ContentDigest != ""
}

// PixelCount returns the total pixel count, or 0 when resolution is absent
// so that metadata-less images rank last.
func (r *ImageRecord) PixelCount() int64 {
	if !r.HasResolution {
		return 0
	}
	return int64(r.XResolution) * int64(r.YResolution)
}

// DuplicateGroup is a set of byte-identical images, keyed by the pair of
// content digest and weak digest. Membership requires equality on both.
type DuplicateGroup struct {
	ContentDigest string         `json:"content_digest"`
	WeakDigest    uint64         `json:"weak_digest"`
	Members       []*ImageRecord `json:"members"`
}

// CollisionKind distinguishes the two single-digest collision cases.
type CollisionKind string

const (
	// WeakCollision: weak digests match but content digests differ.
	WeakCollision CollisionKind = "weak"
	// StrongCollision: content digests match but weak digests differ.
	StrongCollision CollisionKind = "strong"
)

// CollisionGroup is a set of images that agree on exactly one of the two
// byte-level digests. Surfaced for audit, never merged into a duplicate group.
type CollisionGroup struct {
	Kind      CollisionKind  `json:"kind"`
	HashValue string         `json:"hash_value"` // the digest the members share
	Members   []*ImageRecord `json:"members"`
}

// ExactReport is the full output of the exact-duplicate classifier.
type ExactReport struct {
	Groups           []*DuplicateGroup `json:"groups"`
	WeakCollisions   []*CollisionGroup `json:"weak_collisions"`
	StrongCollisions []*CollisionGroup `json:"strong_collisions"`
	Unhashed         []*ImageRecord    `json:"unhashed,omitempty"`
}

// SimilarityGroup is a set of images sharing one perceptual hash.
type SimilarityGroup struct {
	Perceptual uint64         `json:"perceptual"`
	Members    []*ImageRecord `json:"members"`
}

// RankedMember pairs a group member with its quality rank. Rank 1 is the
// keep candidate; tied members share a rank (dense rank).
type RankedMember struct {
	Record *ImageRecord `json:"record"`
	Rank   int          `json:"rank"`
}

// ExternalRecord is one institutional accession/inventory entry.
type ExternalRecord struct {
	RecordID      string `json:"record_id"`
	Accession     string `json:"accession"`
	Inventory     string `json:"inventory"`
	CodeAndNumber string `json:"code_and_number"` // derived join key
}

// LinkageStatus classifies how an image relates to the external record table.
type LinkageStatus string

const (
	// StatusDirect: the filename-derived key joined an external record.
	StatusDirect LinkageStatus = "direct"
	// StatusPropagated: the record ID was inherited from a group sibling.
	StatusPropagated LinkageStatus = "propagated"
	// StatusUnlinked: no direct match and no linked sibling.
	StatusUnlinked LinkageStatus = "unlinked"
	// StatusConflict: the image's group holds two distinct direct record IDs,
	// so propagation was withheld.
	StatusConflict LinkageStatus = "conflict"
)

// LinkageResult is the terminal per-image output of the linkage pass.
// Never mutated after creation.
type LinkageResult struct {
	Path     string        `json:"path"`
	RecordID string        `json:"record_id,omitempty"`
	Status   LinkageStatus `json:"status"`
}

// UnhashedFile records a file whose raw bytes could not be read.
type UnhashedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ScanResult holds everything a folder scan produced.
type ScanResult struct {
	Records  []*ImageRecord  `json:"records"`
	Unhashed []*UnhashedFile `json:"unhashed,omitempty"`
}
