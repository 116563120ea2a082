// Package store persists run artifacts as JSON documents, one directory per run.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aluiziolira/go-collect-posts/models"
)

// Artifact file names inside a batch directory.
const (
	ScoutFile   = "scout_report.json"
	ListFile    = "posts_list.json"
	SummaryFile = "summary.json"
	CSVFile     = "posts.csv"
)

// DetailFile returns the artifact name for one position.
func DetailFile(position int) string {
	return "post_" + strconv.Itoa(position) + ".json"
}

// Store creates batch directories under a root output directory.
type Store struct {
	root string
}

// New returns a store rooted at dir. The directory is created on first use.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the output directory.
func (s *Store) Root() string {
	return s.root
}

// CreateBatch creates an isolated directory named after the run id derived from now.
// A numeric suffix is appended if a run already claimed the same second.
func (s *Store) CreateBatch(now time.Time) (*Batch, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", s.root, err)
	}

	id := now.Format(models.RunIDLayout)
	name := "batch_" + id
	for i := 2; ; i++ {
		dir := filepath.Join(s.root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return &Batch{id: id, dir: dir}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create batch directory %q: %w", dir, err)
		}
		id = now.Format(models.RunIDLayout) + "_" + strconv.Itoa(i)
		name = "batch_" + id
	}
}

// Batch is the output location of one run. Each write replaces a whole file atomically,
// so readers never observe a torn artifact.
type Batch struct {
	id  string
	dir string
}

// ID returns the run identifier.
func (b *Batch) ID() string {
	return b.id
}

// Dir returns the batch directory.
func (b *Batch) Dir() string {
	return b.dir
}

// WriteScout persists the scout report.
func (b *Batch) WriteScout(report models.ScoutReport) error {
	return b.writeJSON(ScoutFile, report)
}

// WriteList persists the enumerated items, including an empty list.
func (b *Batch) WriteList(list models.PostList) error {
	if list.Posts == nil {
		list.Posts = []models.ItemSummary{}
	}
	return b.writeJSON(ListFile, list)
}

// WriteDetail persists the record of one position, replacing any earlier attempt.
func (b *Batch) WriteDetail(record models.PostRecord) error {
	if record.PostIndex <= 0 {
		return fmt.Errorf("write detail: invalid position %d", record.PostIndex)
	}
	return b.writeJSON(DetailFile(record.PostIndex), record)
}

// WriteSummary persists the run summary.
func (b *Batch) WriteSummary(summary models.RunSummary) error {
	return b.writeJSON(SummaryFile, summary)
}

func (b *Batch) writeJSON(name string, v any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return writeFileAtomic(filepath.Join(b.dir, name), buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %q: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %q: %w", path, err)
	}
	tmpName = ""
	return nil
}
