package storage

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// exportTables lists the CSV files written by ExportCSV and the query
// backing each one.
var exportTables = []struct {
	file  string
	query string
}{
	{"images.csv", `
		SELECT path, content_digest, weak_digest, perceptual, has_perceptual,
		       x_resolution, y_resolution, has_resolution, unique_colors, has_colors,
		       format, file_size
		FROM images ORDER BY path`},
	{"exactDuplicates.csv", `
		SELECT content_digest, weak_digest, path
		FROM exact_duplicates ORDER BY weak_digest, content_digest, path`},
	{"collisionCandidates.csv", `
		SELECT kind, hash_value, path
		FROM collision_candidates ORDER BY kind, hash_value, path`},
	{"similarImages.csv", `
		SELECT perceptual, path
		FROM similar_images ORDER BY perceptual, path`},
	{"rankedMembers.csv", `
		SELECT group_kind, group_key, path, rank, ambiguous
		FROM ranked_members ORDER BY group_kind, group_key, rank, path`},
	{"externalRecords.csv", `
		SELECT record_id, accession, inventory, code_and_number
		FROM external_records ORDER BY id`},
	{"linkageResults.csv", `
		SELECT path, record_id, status
		FROM linkage_results ORDER BY path`},
	{"unhashedFiles.csv", `
		SELECT path, reason
		FROM unhashed_files ORDER BY path`},
}

// ExportCSV writes every stored table as a CSV file under dir.
func (s *Storage) ExportCSV(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	for _, t := range exportTables {
		if err := s.exportTable(filepath.Join(dir, t.file), t.query); err != nil {
			return fmt.Errorf("failed to export %s: %w", t.file, err)
		}
	}
	return nil
}

func (s *Storage) exportTable(path, query string) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}

	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		record := make([]string, len(cols))
		for i, v := range vals {
			record[i] = v.String
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
