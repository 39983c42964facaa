package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"archivelinker/internal/models"
)

// Storage persists image fingerprints, the derived classification tables and
// the linkage results. The database doubles as the downstream query surface:
// every derived table joins back to images on path with plain SQL.
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage creates a new Storage
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Current schema version
const schemaVersion = 2

// migrations defines all schema migrations
// Each migration should be idempotent (safe to run multiple times)
var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
	{
		version:     2,
		description: "Add ambiguous flag to ranked_members",
		up: `
			ALTER TABLE ranked_members ADD COLUMN ambiguous INTEGER DEFAULT 0;
		`,
	},
}

// init creates the database schema
func (s *Storage) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		content_digest TEXT NOT NULL,
		weak_digest INTEGER NOT NULL,
		perceptual INTEGER DEFAULT 0,
		has_perceptual INTEGER DEFAULT 0,
		x_resolution INTEGER DEFAULT 0,
		y_resolution INTEGER DEFAULT 0,
		has_resolution INTEGER DEFAULT 0,
		unique_colors INTEGER DEFAULT 0,
		has_colors INTEGER DEFAULT 0,
		format TEXT DEFAULT '',
		file_size INTEGER NOT NULL,
		mod_time DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_content_digest ON images(content_digest);
	CREATE INDEX IF NOT EXISTS idx_images_weak_digest ON images(weak_digest);
	CREATE INDEX IF NOT EXISTS idx_images_perceptual ON images(perceptual);
	CREATE INDEX IF NOT EXISTS idx_images_path ON images(path);

	CREATE TABLE IF NOT EXISTS exact_duplicates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_digest TEXT NOT NULL,
		weak_digest INTEGER NOT NULL,
		path TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exact_duplicates_pair ON exact_duplicates(weak_digest, content_digest);

	CREATE TABLE IF NOT EXISTS collision_candidates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		hash_value TEXT NOT NULL,
		path TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS similar_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		perceptual INTEGER NOT NULL,
		path TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_similar_images_perceptual ON similar_images(perceptual);

	CREATE TABLE IF NOT EXISTS ranked_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_kind TEXT NOT NULL,
		group_key TEXT NOT NULL,
		path TEXT NOT NULL,
		rank INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ranked_members_group ON ranked_members(group_kind, group_key);

	CREATE TABLE IF NOT EXISTS external_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		accession TEXT NOT NULL,
		inventory TEXT NOT NULL,
		code_and_number TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_external_records_key ON external_records(code_and_number);

	CREATE TABLE IF NOT EXISTS linkage_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		record_id TEXT DEFAULT '',
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS unhashed_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder TEXT NOT NULL,
		scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		total_images INTEGER NOT NULL,
		total_unhashed INTEGER NOT NULL,
		exact_groups INTEGER NOT NULL,
		similar_groups INTEGER NOT NULL
	);
	`

	if _, err = s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrate runs pending schema migrations
func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion || m.up == "" {
			continue
		}

		// Check if migration is needed (column might already exist)
		if m.version == 2 {
			if s.columnExists("ranked_members", "ambiguous") {
				s.setSchemaVersion(m.version)
				continue
			}
		}

		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}

		s.setSchemaVersion(m.version)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

// setSchemaVersion records a migration as applied
func (s *Storage) setSchemaVersion(version int) {
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
}

// columnExists checks if a column exists in a table
func (s *Storage) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveImages saves or updates multiple image records
func (s *Storage) SaveImages(records []*models.ImageRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO images
			(path, content_digest, weak_digest, perceptual, has_perceptual,
			 x_resolution, y_resolution, has_resolution, unique_colors, has_colors,
			 format, file_size, mod_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		// Cast uint64 to int64 for SQLite compatibility
		_, err := stmt.Exec(
			r.Path,
			r.ContentDigest,
			int64(r.WeakDigest),
			int64(r.Perceptual),
			boolInt(r.HasPerceptual),
			r.XResolution,
			r.YResolution,
			boolInt(r.HasResolution),
			r.UniqueColors,
			boolInt(r.HasColors),
			r.Format,
			r.FileSize,
			r.ModTime,
		)
		if err != nil {
			return fmt.Errorf("failed to insert image %s: %w", r.Path, err)
		}
	}

	return tx.Commit()
}

const imageColumns = `id, path, content_digest, weak_digest, perceptual, has_perceptual,
	x_resolution, y_resolution, has_resolution, unique_colors, has_colors,
	format, file_size, mod_time`

// GetAllImages returns all stored image records ordered by path
func (s *Storage) GetAllImages() ([]*models.ImageRecord, error) {
	rows, err := s.db.Query(`SELECT ` + imageColumns + ` FROM images ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var records []*models.ImageRecord
	for rows.Next() {
		r, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetImageByPath returns one stored image record, or nil when absent
func (s *Storage) GetImageByPath(path string) (*models.ImageRecord, error) {
	rows, err := s.db.Query(`SELECT `+imageColumns+` FROM images WHERE path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanImage(rows)
}

func scanImage(rows *sql.Rows) (*models.ImageRecord, error) {
	r := &models.ImageRecord{}
	var (
		weak, perceptual                 int64
		hasPerceptual, hasRes, hasColors int
		modTime                          string
	)
	err := rows.Scan(
		&r.ID,
		&r.Path,
		&r.ContentDigest,
		&weak,
		&perceptual,
		&hasPerceptual,
		&r.XResolution,
		&r.YResolution,
		&hasRes,
		&r.UniqueColors,
		&hasColors,
		&r.Format,
		&r.FileSize,
		&modTime,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	r.WeakDigest = uint64(weak)
	r.Perceptual = uint64(perceptual)
	r.HasPerceptual = hasPerceptual == 1
	r.HasResolution = hasRes == 1
	r.HasColors = hasColors == 1
	r.ModTime, _ = time.Parse("2006-01-02 15:04:05", modTime)
	return r, nil
}

// SaveExactReport replaces the stored exact-duplicate and collision tables
func (s *Storage) SaveExactReport(report *models.ExactReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM exact_duplicates`); err != nil {
		return fmt.Errorf("failed to reset exact_duplicates: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM collision_candidates`); err != nil {
		return fmt.Errorf("failed to reset collision_candidates: %w", err)
	}

	dupStmt, err := tx.Prepare(`
		INSERT INTO exact_duplicates (content_digest, weak_digest, path) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer dupStmt.Close()

	for _, g := range report.Groups {
		for _, m := range g.Members {
			if _, err := dupStmt.Exec(g.ContentDigest, int64(g.WeakDigest), m.Path); err != nil {
				return fmt.Errorf("failed to insert duplicate %s: %w", m.Path, err)
			}
		}
	}

	colStmt, err := tx.Prepare(`
		INSERT INTO collision_candidates (kind, hash_value, path) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer colStmt.Close()

	for _, groups := range [][]*models.CollisionGroup{report.WeakCollisions, report.StrongCollisions} {
		for _, g := range groups {
			for _, m := range g.Members {
				if _, err := colStmt.Exec(string(g.Kind), g.HashValue, m.Path); err != nil {
					return fmt.Errorf("failed to insert collision %s: %w", m.Path, err)
				}
			}
		}
	}

	return tx.Commit()
}

// GetExactGroups rebuilds the exact-duplicate groups from the database
func (s *Storage) GetExactGroups() ([]*models.DuplicateGroup, error) {
	rows, err := s.db.Query(`
		SELECT d.content_digest, d.weak_digest, ` + prefixed("i", imageColumns) + `
		FROM exact_duplicates d
		JOIN images i ON d.path = i.path
		ORDER BY d.weak_digest, d.content_digest, d.path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query exact duplicates: %w", err)
	}
	defer rows.Close()

	var groups []*models.DuplicateGroup
	for rows.Next() {
		var content string
		var weak int64
		r := &models.ImageRecord{}
		var (
			rWeak, rPerceptual               int64
			hasPerceptual, hasRes, hasColors int
			modTime                          string
		)
		err := rows.Scan(
			&content, &weak,
			&r.ID, &r.Path, &r.ContentDigest, &rWeak, &rPerceptual, &hasPerceptual,
			&r.XResolution, &r.YResolution, &hasRes, &r.UniqueColors, &hasColors,
			&r.Format, &r.FileSize, &modTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.WeakDigest = uint64(rWeak)
		r.Perceptual = uint64(rPerceptual)
		r.HasPerceptual = hasPerceptual == 1
		r.HasResolution = hasRes == 1
		r.HasColors = hasColors == 1
		r.ModTime, _ = time.Parse("2006-01-02 15:04:05", modTime)

		n := len(groups)
		if n == 0 || groups[n-1].ContentDigest != content || groups[n-1].WeakDigest != uint64(weak) {
			groups = append(groups, &models.DuplicateGroup{
				ContentDigest: content,
				WeakDigest:    uint64(weak),
			})
			n++
		}
		groups[n-1].Members = append(groups[n-1].Members, r)
	}
	return groups, rows.Err()
}

// GetCollisions returns the stored collision candidates of one kind
func (s *Storage) GetCollisions(kind models.CollisionKind) ([]*models.CollisionGroup, error) {
	rows, err := s.db.Query(`
		SELECT c.hash_value, `+prefixed("i", imageColumns)+`
		FROM collision_candidates c
		JOIN images i ON c.path = i.path
		WHERE c.kind = ?
		ORDER BY c.hash_value, c.path
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query collisions: %w", err)
	}
	defer rows.Close()

	var groups []*models.CollisionGroup
	for rows.Next() {
		var hashValue string
		r := &models.ImageRecord{}
		var (
			rWeak, rPerceptual               int64
			hasPerceptual, hasRes, hasColors int
			modTime                          string
		)
		err := rows.Scan(
			&hashValue,
			&r.ID, &r.Path, &r.ContentDigest, &rWeak, &rPerceptual, &hasPerceptual,
			&r.XResolution, &r.YResolution, &hasRes, &r.UniqueColors, &hasColors,
			&r.Format, &r.FileSize, &modTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.WeakDigest = uint64(rWeak)
		r.Perceptual = uint64(rPerceptual)
		r.HasPerceptual = hasPerceptual == 1
		r.HasResolution = hasRes == 1
		r.HasColors = hasColors == 1
		r.ModTime, _ = time.Parse("2006-01-02 15:04:05", modTime)

		n := len(groups)
		if n == 0 || groups[n-1].HashValue != hashValue {
			groups = append(groups, &models.CollisionGroup{Kind: kind, HashValue: hashValue})
			n++
		}
		groups[n-1].Members = append(groups[n-1].Members, r)
	}
	return groups, rows.Err()
}

// SaveSimilarityGroups replaces the stored similarity partition
func (s *Storage) SaveSimilarityGroups(groups []*models.SimilarityGroup) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM similar_images`); err != nil {
		return fmt.Errorf("failed to reset similar_images: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO similar_images (perceptual, path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, g := range groups {
		for _, m := range g.Members {
			if _, err := stmt.Exec(int64(g.Perceptual), m.Path); err != nil {
				return fmt.Errorf("failed to insert similar image %s: %w", m.Path, err)
			}
		}
	}

	return tx.Commit()
}

// GetSimilarityGroups rebuilds the similarity groups from the database
func (s *Storage) GetSimilarityGroups() ([]*models.SimilarityGroup, error) {
	rows, err := s.db.Query(`
		SELECT s.perceptual, ` + prefixed("i", imageColumns) + `
		FROM similar_images s
		JOIN images i ON s.path = i.path
		ORDER BY s.perceptual, s.path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar images: %w", err)
	}
	defer rows.Close()

	var groups []*models.SimilarityGroup
	for rows.Next() {
		var perceptual int64
		r := &models.ImageRecord{}
		var (
			rWeak, rPerceptual               int64
			hasPerceptual, hasRes, hasColors int
			modTime                          string
		)
		err := rows.Scan(
			&perceptual,
			&r.ID, &r.Path, &r.ContentDigest, &rWeak, &rPerceptual, &hasPerceptual,
			&r.XResolution, &r.YResolution, &hasRes, &r.UniqueColors, &hasColors,
			&r.Format, &r.FileSize, &modTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.WeakDigest = uint64(rWeak)
		r.Perceptual = uint64(rPerceptual)
		r.HasPerceptual = hasPerceptual == 1
		r.HasResolution = hasRes == 1
		r.HasColors = hasColors == 1
		r.ModTime, _ = time.Parse("2006-01-02 15:04:05", modTime)

		n := len(groups)
		if n == 0 || groups[n-1].Perceptual != uint64(perceptual) {
			groups = append(groups, &models.SimilarityGroup{Perceptual: uint64(perceptual)})
			n++
		}
		groups[n-1].Members = append(groups[n-1].Members, r)
	}
	return groups, rows.Err()
}

// Group kinds persisted in ranked_members.
const (
	KindExact   = "exact"
	KindSimilar = "similar"
)

// RankedEntry is one persisted row of the per-group quality ranking.
type RankedEntry struct {
	GroupKind string // "exact" or "similar"
	GroupKey  string
	Path      string
	Rank      int
	Ambiguous bool // the group has no single rank-1 member
}

// SaveRankedEntries replaces the stored rankings
func (s *Storage) SaveRankedEntries(entries []RankedEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ranked_members`); err != nil {
		return fmt.Errorf("failed to reset ranked_members: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO ranked_members (group_kind, group_key, path, rank, ambiguous)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.GroupKind, e.GroupKey, e.Path, e.Rank, boolInt(e.Ambiguous)); err != nil {
			return fmt.Errorf("failed to insert ranking for %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}

// GetRankedEntries returns the stored rankings for one group kind
func (s *Storage) GetRankedEntries(groupKind string) ([]RankedEntry, error) {
	rows, err := s.db.Query(`
		SELECT group_kind, group_key, path, rank, ambiguous
		FROM ranked_members
		WHERE group_kind = ?
		ORDER BY group_key, rank, path
	`, groupKind)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	var entries []RankedEntry
	for rows.Next() {
		var e RankedEntry
		var ambiguous int
		if err := rows.Scan(&e.GroupKind, &e.GroupKey, &e.Path, &e.Rank, &ambiguous); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Ambiguous = ambiguous == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveExternalRecords replaces the stored external record table
func (s *Storage) SaveExternalRecords(table []*models.ExternalRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM external_records`); err != nil {
		return fmt.Errorf("failed to reset external_records: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO external_records (record_id, accession, inventory, code_and_number)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range table {
		if _, err := stmt.Exec(rec.RecordID, rec.Accession, rec.Inventory, rec.CodeAndNumber); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.RecordID, err)
		}
	}

	return tx.Commit()
}

// GetExternalRecords returns the stored external record table in insert order
func (s *Storage) GetExternalRecords() ([]*models.ExternalRecord, error) {
	rows, err := s.db.Query(`
		SELECT record_id, accession, inventory, code_and_number
		FROM external_records
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query external records: %w", err)
	}
	defer rows.Close()

	var table []*models.ExternalRecord
	for rows.Next() {
		rec := &models.ExternalRecord{}
		if err := rows.Scan(&rec.RecordID, &rec.Accession, &rec.Inventory, &rec.CodeAndNumber); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		table = append(table, rec)
	}
	return table, rows.Err()
}

// SaveLinkageResults replaces the stored linkage results
func (s *Storage) SaveLinkageResults(results []*models.LinkageResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM linkage_results`); err != nil {
		return fmt.Errorf("failed to reset linkage_results: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO linkage_results (path, record_id, status) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.Exec(res.Path, res.RecordID, string(res.Status)); err != nil {
			return fmt.Errorf("failed to insert linkage for %s: %w", res.Path, err)
		}
	}

	return tx.Commit()
}

// GetLinkageResults returns the stored linkage results ordered by path
func (s *Storage) GetLinkageResults() ([]*models.LinkageResult, error) {
	rows, err := s.db.Query(`
		SELECT path, record_id, status FROM linkage_results ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query linkage results: %w", err)
	}
	defer rows.Close()

	var results []*models.LinkageResult
	for rows.Next() {
		res := &models.LinkageResult{}
		var status string
		if err := rows.Scan(&res.Path, &res.RecordID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		res.Status = models.LinkageStatus(status)
		results = append(results, res)
	}
	return results, rows.Err()
}

// SaveUnhashed replaces the stored unhashed-file report
func (s *Storage) SaveUnhashed(files []*models.UnhashedFile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM unhashed_files`); err != nil {
		return fmt.Errorf("failed to reset unhashed_files: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO unhashed_files (path, reason) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(f.Path, f.Reason); err != nil {
			return fmt.Errorf("failed to insert unhashed file %s: %w", f.Path, err)
		}
	}

	return tx.Commit()
}

// GetUnhashed returns the stored unhashed-file report
func (s *Storage) GetUnhashed() ([]*models.UnhashedFile, error) {
	rows, err := s.db.Query(`SELECT path, reason FROM unhashed_files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unhashed files: %w", err)
	}
	defer rows.Close()

	var files []*models.UnhashedFile
	for rows.Next() {
		f := &models.UnhashedFile{}
		if err := rows.Scan(&f.Path, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteImage removes an image and its derived rows from the database
func (s *Storage) DeleteImage(path string) error {
	queries := []string{
		`DELETE FROM images WHERE path = ?`,
		`DELETE FROM exact_duplicates WHERE path = ?`,
		`DELETE FROM collision_candidates WHERE path = ?`,
		`DELETE FROM similar_images WHERE path = ?`,
		`DELETE FROM ranked_members WHERE path = ?`,
		`DELETE FROM linkage_results WHERE path = ?`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q, path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	return nil
}

// RecordScan records a scan in history
func (s *Storage) RecordScan(folder string, totalImages, totalUnhashed, exactGroups, similarGroups int) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_history (folder, total_images, total_unhashed, exact_groups, similar_groups)
		VALUES (?, ?, ?, ?, ?)
	`, folder, totalImages, totalUnhashed, exactGroups, similarGroups)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
