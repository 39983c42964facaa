package linkage

import (
	"sort"

	"archivelinker/internal/models"
)

// Linker reconciles the content-hash identity of images with the
// institutional identity carried by the external record table.
//
// Images whose filename-derived codeAndNumber key joins a record are linked
// directly. Images without a direct match inherit the record ID of a directly
// linked sibling in the same group, the exact-duplicate partition taking
// precedence over the similarity partition. A group holding two distinct
// direct record IDs is an identity conflict: propagation is withheld for its
// unlinked members and they are marked accordingly.
type Linker struct {
	byKey map[string]*models.ExternalRecord
}

// NewLinker indexes the record table by codeAndNumber. When several records
// share a key, the first row in table order wins; resolving multi-record
// claims is out of scope.
func NewLinker(table []*models.ExternalRecord) *Linker {
	byKey := make(map[string]*models.ExternalRecord, len(table))
	for _, rec := range table {
		if rec.CodeAndNumber == "" {
			continue
		}
		if _, ok := byKey[rec.CodeAndNumber]; !ok {
			byKey[rec.CodeAndNumber] = rec
		}
	}
	return &Linker{byKey: byKey}
}

// groupLink summarizes the direct linkages inside one group.
type groupLink struct {
	donorID  string // the single direct record ID, when unambiguous
	conflict bool   // two or more distinct direct record IDs
}

// Link produces exactly one LinkageResult per image record. Propagation is a
// single pass: a record's only path to a record ID is through a group it is
// directly a member of, never across groups.
func (l *Linker) Link(records []*models.ImageRecord, exact []*models.DuplicateGroup, similar []*models.SimilarityGroup) []*models.LinkageResult {
	direct := make(map[string]string, len(records))
	for _, r := range records {
		key, ok := KeyFromPath(r.Path)
		if !ok {
			continue
		}
		if rec, ok := l.byKey[key]; ok {
			direct[r.Path] = rec.RecordID
		}
	}

	exactLinks := make(map[string]groupLink)
	for _, g := range exact {
		link := summarize(g.Members, direct)
		for _, m := range g.Members {
			exactLinks[m.Path] = link
		}
	}
	similarLinks := make(map[string]groupLink)
	for _, g := range similar {
		link := summarize(g.Members, direct)
		for _, m := range g.Members {
			similarLinks[m.Path] = link
		}
	}

	ordered := make([]*models.ImageRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Path < ordered[j].Path
	})

	results := make([]*models.LinkageResult, 0, len(ordered))
	for _, r := range ordered {
		if id, ok := direct[r.Path]; ok {
			results = append(results, &models.LinkageResult{
				Path:     r.Path,
				RecordID: id,
				Status:   models.StatusDirect,
			})
			continue
		}

		res := &models.LinkageResult{Path: r.Path, Status: models.StatusUnlinked}
		if link, ok := exactLinks[r.Path]; ok {
			apply(res, link)
		}
		if res.Status == models.StatusUnlinked {
			if link, ok := similarLinks[r.Path]; ok {
				apply(res, link)
			}
		}
		results = append(results, res)
	}
	return results
}

// summarize collects the distinct direct record IDs among a group's members.
func summarize(members []*models.ImageRecord, direct map[string]string) groupLink {
	seen := make(map[string]struct{})
	var link groupLink
	for _, m := range members {
		id, ok := direct[m.Path]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		link.donorID = id
	}
	if len(seen) > 1 {
		return groupLink{conflict: true}
	}
	return link
}

func apply(res *models.LinkageResult, link groupLink) {
	switch {
	case link.conflict:
		res.Status = models.StatusConflict
	case link.donorID != "":
		res.Status = models.StatusPropagated
		res.RecordID = link.donorID
	}
}
