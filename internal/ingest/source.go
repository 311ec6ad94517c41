package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/util"
)

// Source supplies scraped catalog records from one platform feed
type Source interface {
	// Name identifies the source for logging and stats
	Name() string
	// Fetch returns the current batch of records
	Fetch(ctx context.Context) ([]model.ScrapedRecord, error)
}

// FileSource reads records from a JSONL file, one record per line.
// Blank lines and lines starting with # are skipped.
type FileSource struct {
	path     string
	platform string // overrides the record's platform field when set
}

// NewFileSource creates a source reading from the given JSONL file
func NewFileSource(path, platform string) *FileSource {
	return &FileSource{path: path, platform: platform}
}

func (f *FileSource) Name() string {
	if f.platform != "" {
		return f.platform
	}
	return filepath.Base(f.path)
}

func (f *FileSource) Fetch(ctx context.Context) ([]model.ScrapedRecord, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed %s: %w", f.path, err)
	}
	defer file.Close()

	var records []model.ScrapedRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec model.ScrapedRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			util.WarnLog("Skipping malformed record at %s:%d: %v", f.path, lineNo, err)
			continue
		}
		if f.platform != "" {
			rec.Platform = f.platform
		}
		if rec.RawPayload == nil {
			rec.RawPayload = json.RawMessage(line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", f.path, err)
	}

	return records, nil
}

// DirSources builds one FileSource per *.jsonl file in a directory.
// The platform name is taken from the file name stem.
func DirSources(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed directory %s: %w", dir, err)
	}

	var sources []Source
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		platform := strings.TrimSuffix(entry.Name(), ".jsonl")
		sources = append(sources, NewFileSource(filepath.Join(dir, entry.Name()), platform))
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name() < sources[j].Name() })

	return sources, nil
}
