package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"archivelinker/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testImage(path string) *models.ImageRecord {
	return &models.ImageRecord{
		Path:          path,
		ContentDigest: "digest-" + path,
		WeakDigest:    42,
		Perceptual:    1234567890,
		HasPerceptual: true,
		XResolution:   640,
		YResolution:   480,
		HasResolution: true,
		UniqueColors:  256,
		HasColors:     true,
		Format:        "png",
		FileSize:      2048,
		ModTime:       time.Now(),
	}
}

func TestNewStorage_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "deeper", "test.db")
	store, err := NewStorage(dbPath)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestNewStorage_ReopenRunsNoMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStorage(dbPath)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	store.Close()

	// Opening an up-to-date database must be a no-op.
	store, err = NewStorage(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	if v := store.getSchemaVersion(); v != schemaVersion {
		t.Errorf("schema version = %d, want %d", v, schemaVersion)
	}
}

func TestSaveImages_Roundtrip(t *testing.T) {
	store := newTestStorage(t)

	want := testImage("/photos/a.png")
	if err := store.SaveImages([]*models.ImageRecord{want, testImage("/photos/b.png")}); err != nil {
		t.Fatalf("SaveImages failed: %v", err)
	}

	got, err := store.GetImageByPath("/photos/a.png")
	if err != nil {
		t.Fatalf("GetImageByPath failed: %v", err)
	}
	if got == nil {
		t.Fatal("stored image not found")
	}
	if got.ContentDigest != want.ContentDigest || got.WeakDigest != want.WeakDigest {
		t.Errorf("digests = %q/%d, want %q/%d", got.ContentDigest, got.WeakDigest, want.ContentDigest, want.WeakDigest)
	}
	if got.Perceptual != want.Perceptual || !got.HasPerceptual {
		t.Errorf("perceptual = %d (present=%v), want %d", got.Perceptual, got.HasPerceptual, want.Perceptual)
	}
	if got.XResolution != 640 || got.YResolution != 480 || !got.HasResolution {
		t.Errorf("resolution = %dx%d", got.XResolution, got.YResolution)
	}
	if got.UniqueColors != 256 || !got.HasColors {
		t.Errorf("unique colors = %d", got.UniqueColors)
	}
	if got.Format != "png" || got.FileSize != 2048 {
		t.Errorf("format/size = %q/%d", got.Format, got.FileSize)
	}
}

func TestSaveImages_UpsertByPath(t *testing.T) {
	store := newTestStorage(t)

	first := testImage("/photos/a.png")
	if err := store.SaveImages([]*models.ImageRecord{first}); err != nil {
		t.Fatalf("SaveImages failed: %v", err)
	}

	updated := testImage("/photos/a.png")
	updated.UniqueColors = 999
	if err := store.SaveImages([]*models.ImageRecord{updated}); err != nil {
		t.Fatalf("second SaveImages failed: %v", err)
	}

	all, err := store.GetAllImages()
	if err != nil {
		t.Fatalf("GetAllImages failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 image after upsert, got %d", len(all))
	}
	if all[0].UniqueColors != 999 {
		t.Errorf("UniqueColors = %d, want updated value 999", all[0].UniqueColors)
	}
}

func TestGetAllImages_SortedByPath(t *testing.T) {
	store := newTestStorage(t)

	records := []*models.ImageRecord{
		testImage("/photos/c.png"),
		testImage("/photos/a.png"),
		testImage("/photos/b.png"),
	}
	if err := store.SaveImages(records); err != nil {
		t.Fatalf("SaveImages failed: %v", err)
	}

	all, err := store.GetAllImages()
	if err != nil {
		t.Fatalf("GetAllImages failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 images, got %d", len(all))
	}
	if all[0].Path != "/photos/a.png" || all[2].Path != "/photos/c.png" {
		t.Errorf("images not ordered by path: %s, %s, %s", all[0].Path, all[1].Path, all[2].Path)
	}
}

func TestGetImageByPath_Missing(t *testing.T) {
	store := newTestStorage(t)
	got, err := store.GetImageByPath("/nope.png")
	if err != nil {
		t.Fatalf("GetImageByPath failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing path, got %+v", got)
	}
}

func TestSaveExactReport_Roundtrip(t *testing.T) {
	store := newTestStorage(t)

	a := testImage("/photos/a.png")
	b := testImage("/photos/b.png")
	b.ContentDigest = a.ContentDigest
	c := testImage("/photos/c.png")
	if err := store.SaveImages([]*models.ImageRecord{a, b, c}); err != nil {
		t.Fatalf("SaveImages failed: %v", err)
	}

	report := &models.ExactReport{
		Groups: []*models.DuplicateGroup{{
			ContentDigest: a.ContentDigest,
			WeakDigest:    a.WeakDigest,
			Members:       []*models.ImageRecord{a, b},
		}},
		WeakCollisions: []*models.CollisionGroup{{
			Kind:      models.WeakCollision,
			HashValue: "000000000000002a",
			Members:   []*models.ImageRecord{c},
		}},
	}
	if err := store.SaveExactReport(report); err != nil {
		t.Fatalf("SaveExactReport failed: %v", err)
	}

	groups, err := store.GetExactGroups()
	if err != nil {
		t.Fatalf("GetExactGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.ContentDigest != a.ContentDigest || g.WeakDigest != a.WeakDigest {
		t.Errorf("group key = %q/%d", g.ContentDigest, g.WeakDigest)
	}
	if len(g.Members) != 2 || g.Members[0].Path != "/photos/a.png" {
		t.Errorf("members = %d, first = %s", len(g.Members), g.Members[0].Path)
	}

	weak, err := store.GetCollisions(models.WeakCollision)
	if err != nil {
		t.Fatalf("GetCollisions failed: %v", err)
	}
	if len(weak) != 1 || weak[0].HashValue != "000000000000002a" {
		t.Fatalf("weak collisions = %+v", weak)
	}
	if weak[0].Members[0].Path != "/photos/c.png" {
		t.Errorf("collision member = %s", weak[0].Members[0].Path)
	}

	strong, err := store.GetCollisions(models.StrongCollision)
	if err != nil {
		t.Fatalf("GetCollisions failed: %v", err)
	}
	if len(strong) != 0 {
		t.Errorf("expected no strong collisions, got %d", len(strong))
	}
}

func TestSaveExactReport_Replaces(t *testing.T) {
	store := newTestStorage(t)

	a := testImage("/photos/a.png")
	b := testImage("/photos/b.png")
	b.ContentDigest = a.ContentDigest
	if err := store.SaveImages([]*models.ImageRecord{a, b}); err != nil {
		t.Fatalf("SaveImages failed: %v", err)
	}

	report := &models.ExactReport{Groups: []*models.DuplicateGroup{{
		ContentDigest: a.ContentDigest,
		WeakDigest:    a.WeakDigest,
		Members:       []*models.ImageRecord{a, b},
	}}}
	if err := store.SaveExactReport(report); err != nil {
		t.Fatalf("SaveExactReport failed: %v", err)
	}
	// A rescan with no duplicates must clear the old rows.
	if err := store.SaveExactReport(&models.ExactReport{}); err != nil {
		t.Fatalf("second SaveExactReport failed: %v", err)
	}

	groups, err := store.GetExactGroups()
	if err != nil {
		t.Fatalf("GetExactGroups failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected stale groups cleared, got %d", len(groups))
	}
}

func TestSimilarityGroups_Roundtrip(t *testing.T) {
	store := newTestStorage(t)

	a := testImage("/photos/a.png")
	b := testImage("/photos/b.png")
	if err := store.SaveImages([]*models.ImageRecord{a, b}); err != nil {
		t.Fatalf("SaveImages failed: %v", err)
	}

	in := []*models.SimilarityGroup{{
		Perceptual: a.Perceptual,
		Members:    []*models.ImageRecord{a, b},
	}}
	if err := store.SaveSimilarityGroups(in); err != nil {
		t.Fatalf("SaveSimilarityGroups failed: %v", err)
	}

	out, err := store.GetSimilarityGroups()
	if err != nil {
		t.Fatalf("GetSimilarityGroups failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 group, got %d", len(out))
	}
	if out[0].Perceptual != a.Perceptual {
		t.Errorf("perceptual = %d, want %d", out[0].Perceptual, a.Perceptual)
	}
	if len(out[0].Members) != 2 || out[0].Members[0].Path != "/photos/a.png" {
		t.Errorf("members = %v", out[0].Members)
	}
}

func TestRankedEntries_Roundtrip(t *testing.T) {
	store := newTestStorage(t)

	entries := []RankedEntry{
		{GroupKind: KindExact, GroupKey: "k1", Path: "/a.png", Rank: 1, Ambiguous: true},
		{GroupKind: KindExact, GroupKey: "k1", Path: "/b.png", Rank: 1, Ambiguous: true},
		{GroupKind: KindSimilar, GroupKey: "k2", Path: "/c.png", Rank: 1},
		{GroupKind: KindSimilar, GroupKey: "k2", Path: "/d.png", Rank: 2},
	}
	if err := store.SaveRankedEntries(entries); err != nil {
		t.Fatalf("SaveRankedEntries failed: %v", err)
	}

	exact, err := store.GetRankedEntries(KindExact)
	if err != nil {
		t.Fatalf("GetRankedEntries failed: %v", err)
	}
	if len(exact) != 2 {
		t.Fatalf("expected 2 exact entries, got %d", len(exact))
	}
	if !exact[0].Ambiguous || exact[0].Rank != 1 {
		t.Errorf("entry 0 = %+v, want ambiguous rank 1", exact[0])
	}

	similar, err := store.GetRankedEntries(KindSimilar)
	if err != nil {
		t.Fatalf("GetRankedEntries failed: %v", err)
	}
	if len(similar) != 2 {
		t.Fatalf("expected 2 similar entries, got %d", len(similar))
	}
	if similar[0].Path != "/c.png" || similar[1].Rank != 2 {
		t.Errorf("similar entries = %+v", similar)
	}
	if similar[0].Ambiguous {
		t.Error("unambiguous entry reported ambiguous")
	}
}

func TestExternalRecords_Roundtrip(t *testing.T) {
	store := newTestStorage(t)

	in := []*models.ExternalRecord{
		{RecordID: "R1", Accession: "ACC", Inventory: "1", CodeAndNumber: "ACC/1"},
		{RecordID: "R2", Accession: "ACC", Inventory: "007", CodeAndNumber: "ACC/007"},
	}
	if err := store.SaveExternalRecords(in); err != nil {
		t.Fatalf("SaveExternalRecords failed: %v", err)
	}

	out, err := store.GetExternalRecords()
	if err != nil {
		t.Fatalf("GetExternalRecords failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	// Insert order preserved, leading zeros intact.
	if out[0].RecordID != "R1" || out[1].CodeAndNumber != "ACC/007" {
		t.Errorf("records = %+v, %+v", out[0], out[1])
	}
}

func TestLinkageResults_Roundtrip(t *testing.T) {
	store := newTestStorage(t)

	in := []*models.LinkageResult{
		{Path: "/b.png", Status: models.StatusUnlinked},
		{Path: "/a.png", RecordID: "R1", Status: models.StatusDirect},
		{Path: "/c.png", Status: models.StatusConflict},
	}
	if err := store.SaveLinkageResults(in); err != nil {
		t.Fatalf("SaveLinkageResults failed: %v", err)
	}

	out, err := store.GetLinkageResults()
	if err != nil {
		t.Fatalf("GetLinkageResults failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[0].Path != "/a.png" || out[0].Status != models.StatusDirect || out[0].RecordID != "R1" {
		t.Errorf("result 0 = %+v", out[0])
	}
	if out[2].Status != models.StatusConflict || out[2].RecordID != "" {
		t.Errorf("result 2 = %+v", out[2])
	}
}

func TestUnhashed_Roundtrip(t *testing.T) {
	store := newTestStorage(t)

	in := []*models.UnhashedFile{{Path: "/broken.png", Reason: "permission denied"}}
	if err := store.SaveUnhashed(in); err != nil {
		t.Fatalf("SaveUnhashed failed: %v", err)
	}

	out, err := store.GetUnhashed()
	if err != nil {
		t.Fatalf("GetUnhashed failed: %v", err)
	}
	if len(out) != 1 || out[0].Reason != "permission denied" {
		t.Errorf("unhashed = %+v", out)
	}
}

func TestDeleteImage(t *testing.T) {
	store := newTestStorage(t)

	a := testImage("/photos/a.png")
	b := testImage("/photos/b.png")
	b.ContentDigest = a.ContentDigest
	if err := store.SaveImages([]*models.ImageRecord{a, b}); err != nil {
		t.Fatalf("SaveImages failed: %v", err)
	}
	report := &models.ExactReport{Groups: []*models.DuplicateGroup{{
		ContentDigest: a.ContentDigest,
		WeakDigest:    a.WeakDigest,
		Members:       []*models.ImageRecord{a, b},
	}}}
	if err := store.SaveExactReport(report); err != nil {
		t.Fatalf("SaveExactReport failed: %v", err)
	}

	if err := store.DeleteImage("/photos/b.png"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}

	if got, _ := store.GetImageByPath("/photos/b.png"); got != nil {
		t.Error("deleted image still present")
	}
	groups, err := store.GetExactGroups()
	if err != nil {
		t.Fatalf("GetExactGroups failed: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Members) != 1 {
		t.Errorf("derived rows not cleaned: %+v", groups)
	}
	if groups[0].Members[0].Path != "/photos/a.png" {
		t.Errorf("surviving member = %s", groups[0].Members[0].Path)
	}
}

func TestRecordScan(t *testing.T) {
	store := newTestStorage(t)
	if err := store.RecordScan("/photos", 10, 1, 2, 3); err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM scan_history`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("scan_history rows = %d, want 1", count)
	}
}
