package localfs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// Storage lays out three areas under one root: staging holds working
// copies, originals holds the immutable archival copy (written once per
// file ID), processed holds the final metadata-embedded documents.
type Storage struct {
	stagingDir   string
	originalsDir string
	processedDir string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	s := &Storage{
		stagingDir:   filepath.Join(basePath, "staging"),
		originalsDir: filepath.Join(basePath, "originals"),
		processedDir: filepath.Join(basePath, "processed"),
	}
	for _, dir := range []string{s.stagingDir, s.originalsDir, s.processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return s, nil
}

// HashFile streams the file through SHA-256 in chunks and reports its size.
func (s *Storage) HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.CopyBuffer(hasher, f, make([]byte, 64*1024))
	if err != nil {
		return "", 0, fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

// Stage copies the source into the staging area under a fresh UUID name,
// keeping the original extension.
func (s *Storage) Stage(sourcePath, originalFilename string) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()
	return s.stageReader(src, originalFilename)
}

func (s *Storage) StageBytes(originalFilename string, data []byte) (string, error) {
	return s.stageReader(bytes.NewReader(data), originalFilename)
}

func (s *Storage) stageReader(src io.Reader, originalFilename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if ext == "" {
		ext = ".bin"
	}
	target := filepath.Join(s.stagingDir, uuid.NewString()+ext)

	if err := writeAtomic(target, src); err != nil {
		return "", fmt.Errorf("stage file: %w", err)
	}
	return target, nil
}

// ArchiveOriginal writes the immutable archival copy. Reprocessing a file
// ID must reuse the existing copy, so an already-present original wins.
func (s *Storage) ArchiveOriginal(fileID, workingPath string) (string, error) {
	target := filepath.Join(s.originalsDir, fileID+strings.ToLower(filepath.Ext(workingPath)))
	if _, err := os.Stat(target); err == nil {
		return target, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat original: %w", err)
	}

	src, err := os.Open(workingPath)
	if err != nil {
		return "", fmt.Errorf("open working copy: %w", err)
	}
	defer src.Close()

	if err := writeAtomic(target, src); err != nil {
		return "", fmt.Errorf("archive original: %w", err)
	}
	return target, nil
}

// ProcessedPath reserves a collision-safe name in the processed area:
// base.pdf, then base-0001.pdf, base-0002.pdf, never overwriting. The
// name is claimed with an exclusive create, so two concurrent callers
// always get distinct paths. The caller renames its final document over
// the empty placeholder.
func (s *Storage) ProcessedPath(name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "document"
	}

	candidate := filepath.Join(s.processedDir, base+ext)
	for i := 0; ; i++ {
		if i > 0 {
			candidate = filepath.Join(s.processedDir, fmt.Sprintf("%s-%04d%s", base, i, ext))
		}
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			f.Close()
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("reserve processed name: %w", err)
		}
		if i > 9999 {
			return "", fmt.Errorf("no free processed name for %s", name)
		}
	}
}

func (s *Storage) WriteSidecar(processedPath string, sidecar domain.Sidecar) error {
	payload, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	target := strings.TrimSuffix(processedPath, filepath.Ext(processedPath)) + ".json"
	if err := writeAtomic(target, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames,
// so a crash never leaves a partial file at the final path.
func writeAtomic(target string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move into place: %w", err)
	}
	return nil
}
