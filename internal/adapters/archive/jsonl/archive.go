package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
)

const (
	archiveFileMode = 0o600
	archiveDirMode  = 0o700
	maxLineBytes    = 4 << 20
)

// Archive appends one JSON document per annotation to a file. Appends never
// rewrite earlier lines, so a crash loses at most the line being written.
type Archive struct {
	path string
	mu   sync.Mutex
}

var _ ports.AnnotationArchive = (*Archive)(nil)

func NewArchive(path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("archive path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve archive path: %w", err)
	}

	return &Archive{path: filepath.Clean(absPath)}, nil
}

func (a *Archive) Path() string {
	return a.path
}

func (a *Archive) Append(ctx context.Context, annotation domain.Annotation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(annotation)
	if err != nil {
		return fmt.Errorf("encode annotation: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), archiveDirMode); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, archiveFileMode)
	if err != nil {
		return fmt.Errorf("open archive file: %w", err)
	}

	if _, err := file.Write(line); err != nil {
		_ = file.Close()
		return fmt.Errorf("append archive line: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close archive file: %w", err)
	}

	return nil
}

// List decodes the archive in file order. Lines that fail to decode are
// skipped so one torn write does not hide the rest of the history.
func (a *Archive) List(ctx context.Context, query ports.ArchiveQuery) ([]domain.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Annotation{}, nil
		}
		return nil, fmt.Errorf("open archive file: %w", err)
	}
	defer func() { _ = file.Close() }()

	annotations := make([]domain.Annotation, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var annotation domain.Annotation
		if err := json.Unmarshal(line, &annotation); err != nil {
			continue
		}
		annotations = append(annotations, annotation)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive file: %w", err)
	}

	return ports.ApplyArchiveQuery(annotations, query), nil
}
