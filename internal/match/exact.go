package match

import (
	"fmt"
	"sort"

	"archivelinker/internal/models"
)

// ExactClassifier partitions images into exact-duplicate groups.
//
// A group requires equality on both the content digest and the weak digest.
// Records matching on only one digest are surfaced as collision candidates
// for audit; they are never merged into a group and never dropped.
type ExactClassifier struct{}

// NewExactClassifier creates a new ExactClassifier
func NewExactClassifier() *ExactClassifier {
	return &ExactClassifier{}
}

type digestPair struct {
	content string
	weak    uint64
}

// Classify builds the exact-duplicate report for a record set. Records
// missing their byte-level digests are excluded from grouping and reported
// as unhashed. Output ordering is deterministic regardless of input order.
func (c *ExactClassifier) Classify(records []*models.ImageRecord) *models.ExactReport {
	report := &models.ExactReport{}

	byWeak := make(map[uint64][]*models.ImageRecord)
	byContent := make(map[string][]*models.ImageRecord)
	byPair := make(map[digestPair][]*models.ImageRecord)

	for _, r := range records {
		if !r.Hashed() {
			report.Unhashed = append(report.Unhashed, r)
			continue
		}
		byWeak[r.WeakDigest] = append(byWeak[r.WeakDigest], r)
		byContent[r.ContentDigest] = append(byContent[r.ContentDigest], r)
		pair := digestPair{content: r.ContentDigest, weak: r.WeakDigest}
		byPair[pair] = append(byPair[pair], r)
	}
	sortByPath(report.Unhashed)

	for pair, members := range byPair {
		if len(members) < 2 {
			continue
		}
		sortByPath(members)
		report.Groups = append(report.Groups, &models.DuplicateGroup{
			ContentDigest: pair.content,
			WeakDigest:    pair.weak,
			Members:       members,
		})
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		a, b := report.Groups[i], report.Groups[j]
		if a.WeakDigest != b.WeakDigest {
			return a.WeakDigest < b.WeakDigest
		}
		return a.ContentDigest < b.ContentDigest
	})

	// Weak-hash collision candidates: the weak digest recurs, but the
	// member's content digest is unique within that weak group.
	for weak, members := range byWeak {
		if len(members) < 2 {
			continue
		}
		counts := make(map[string]int)
		for _, m := range members {
			counts[m.ContentDigest]++
		}
		var candidates []*models.ImageRecord
		for _, m := range members {
			if counts[m.ContentDigest] == 1 {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sortByPath(candidates)
		report.WeakCollisions = append(report.WeakCollisions, &models.CollisionGroup{
			Kind:      models.WeakCollision,
			HashValue: DigestHex(weak),
			Members:   candidates,
		})
	}
	sortCollisions(report.WeakCollisions)

	// Strong-hash collision candidates: the symmetric case.
	for content, members := range byContent {
		if len(members) < 2 {
			continue
		}
		counts := make(map[uint64]int)
		for _, m := range members {
			counts[m.WeakDigest]++
		}
		var candidates []*models.ImageRecord
		for _, m := range members {
			if counts[m.WeakDigest] == 1 {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sortByPath(candidates)
		report.StrongCollisions = append(report.StrongCollisions, &models.CollisionGroup{
			Kind:      models.StrongCollision,
			HashValue: content,
			Members:   candidates,
		})
	}
	sortCollisions(report.StrongCollisions)

	return report
}

// DigestHex formats a 64-bit digest as a fixed-width hex string.
func DigestHex(digest uint64) string {
	return fmt.Sprintf("%016x", digest)
}

func sortByPath(records []*models.ImageRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
}

func sortCollisions(groups []*models.CollisionGroup) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].HashValue < groups[j].HashValue
	})
}
