package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"archivelinker/internal/hash"
	"archivelinker/internal/models"
)

// ErrNoImages is returned when a folder contains no supported image files.
var ErrNoImages = errors.New("no image files found")

// ErrAllUnhashable is returned when every discovered file failed hashing.
var ErrAllUnhashable = errors.New("no file could be fingerprinted")

// Scanner walks folders and fingerprints the images it finds.
type Scanner struct {
	hasher     *hash.Hasher
	workers    int
	timeout    time.Duration
	progressFn func(scanned, total int, current string)
}

// Option configures a Scanner
type Option func(*Scanner)

// WithWorkers sets the number of parallel workers
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout sets the timeout for fingerprinting each image
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithProgress sets a progress callback
func WithProgress(fn func(scanned, total int, current string)) Option {
	return func(s *Scanner) {
		s.progressFn = fn
	}
}

// NewScanner creates a new Scanner
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		hasher:  hash.NewHasher(),
		workers: 8,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanFolder recursively fingerprints every supported image under folder.
//
// Per-file failures do not abort the scan: unreadable files are collected in
// the result's unhashed report. Only an empty folder or a scan where every
// single file failed is an error. Results are sorted by path, so the outcome
// does not depend on walk or worker completion order.
func (s *Scanner) ScanFolder(folder string) (*models.ScanResult, error) {
	var paths []string
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable directory entries
		}
		if info.IsDir() {
			return nil
		}
		if hash.IsSupportedImage(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk folder: %w", err)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoImages, folder)
	}

	var (
		result  models.ScanResult
		mu      sync.Mutex
		wg      sync.WaitGroup
		scanned int64
		total   = len(paths)
	)

	work := make(chan string, len(paths))
	for _, p := range paths {
		work <- p
	}
	close(work)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range work {
				rec, err := s.hasher.FingerprintWithTimeout(path, s.timeout)

				mu.Lock()
				if err != nil {
					result.Unhashed = append(result.Unhashed, &models.UnhashedFile{
						Path:   path,
						Reason: err.Error(),
					})
				} else {
					result.Records = append(result.Records, rec)
				}
				mu.Unlock()

				n := atomic.AddInt64(&scanned, 1)
				if s.progressFn != nil {
					s.progressFn(int(n), total, path)
				}
			}
		}()
	}

	wg.Wait()

	if len(result.Records) == 0 {
		return nil, fmt.Errorf("%w: all %d files failed", ErrAllUnhashable, len(result.Unhashed))
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Path < result.Records[j].Path
	})
	sort.Slice(result.Unhashed, func(i, j int) bool {
		return result.Unhashed[i].Path < result.Unhashed[j].Path
	})

	return &result, nil
}
