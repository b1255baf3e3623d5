package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

type repoFake struct {
	byID     map[string]*domain.FileRecord
	byHash   map[string]*domain.FileRecord
	created  []*domain.FileRecord
	conflict bool

	originalPath  string
	processedPath string
}

func newRepoFake() *repoFake {
	return &repoFake{
		byID:   map[string]*domain.FileRecord{},
		byHash: map[string]*domain.FileRecord{},
	}
}

func (f *repoFake) Create(_ context.Context, record *domain.FileRecord) error {
	if f.conflict {
		return domain.WrapError(domain.ErrDuplicate, "create file", fmt.Errorf("unique violation"))
	}
	if _, ok := f.byHash[record.ContentHash]; ok {
		return domain.WrapError(domain.ErrDuplicate, "create file", fmt.Errorf("unique violation"))
	}
	copied := *record
	f.created = append(f.created, &copied)
	f.byID[record.ID] = &copied
	f.byHash[record.ContentHash] = &copied
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.FileRecord, error) {
	record, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get file", fmt.Errorf("no row for %s", id))
	}
	return record, nil
}

func (f *repoFake) GetByHash(_ context.Context, hash string) (*domain.FileRecord, error) {
	record, ok := f.byHash[hash]
	if !ok {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get file", fmt.Errorf("no row for hash"))
	}
	return record, nil
}

func (f *repoFake) UpdatePaths(_ context.Context, id, originalPath, processedPath string) error {
	if originalPath != "" {
		f.originalPath = originalPath
	}
	if processedPath != "" {
		f.processedPath = processedPath
	}
	if record, ok := f.byID[id]; ok {
		if originalPath != "" {
			record.OriginalFilePath = originalPath
		}
		if processedPath != "" {
			record.ProcessedFilePath = processedPath
		}
	}
	return nil
}

type plogFake struct {
	entries []domain.ProcessingLogEntry
	err     error
}

func (f *plogFake) Append(_ context.Context, entry domain.ProcessingLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *plogFake) ListByFileID(_ context.Context, fileID string) ([]domain.ProcessingLogEntry, error) {
	var out []domain.ProcessingLogEntry
	for _, entry := range f.entries {
		if entry.FileID == fileID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *plogFake) byStep(step string) []domain.ProcessingLogEntry {
	var out []domain.ProcessingLogEntry
	for _, entry := range f.entries {
		if entry.StepName == step {
			out = append(out, entry)
		}
	}
	return out
}

type queueFake struct {
	published []domain.Task
	delayed   []domain.Task
	delays    []time.Duration
	err       error
	panicOn   domain.TaskType
}

func (f *queueFake) Publish(_ context.Context, task domain.Task) error {
	if f.panicOn != "" && task.Type == f.panicOn {
		panic("queue exploded")
	}
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, task)
	return nil
}

func (f *queueFake) PublishAfter(_ context.Context, task domain.Task, delay time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.delayed = append(f.delayed, task)
	f.delays = append(f.delays, delay)
	return nil
}

func (f *queueFake) Subscribe(context.Context, domain.TaskType, func(context.Context, domain.Task) error) error {
	return fmt.Errorf("not implemented")
}

func (f *queueFake) byType(taskType domain.TaskType) []domain.Task {
	var out []domain.Task
	for _, task := range f.published {
		if task.Type == taskType {
			out = append(out, task)
		}
	}
	return out
}

type storeFake struct {
	hash     string
	size     int64
	hashErr  error
	staged   []string
	sidecars []domain.Sidecar
}

func (f *storeFake) HashFile(string) (string, int64, error) {
	if f.hashErr != nil {
		return "", 0, f.hashErr
	}
	return f.hash, f.size, nil
}

func (f *storeFake) Stage(sourcePath, originalFilename string) (string, error) {
	path := "/staging/" + originalFilename
	f.staged = append(f.staged, path)
	return path, nil
}

func (f *storeFake) StageBytes(originalFilename string, _ []byte) (string, error) {
	path := "/staging/" + originalFilename
	f.staged = append(f.staged, path)
	return path, nil
}

func (f *storeFake) ArchiveOriginal(fileID, _ string) (string, error) {
	return "/originals/" + fileID, nil
}

func (f *storeFake) ProcessedPath(name string) (string, error) {
	return "/processed/" + name, nil
}

func (f *storeFake) WriteSidecar(_ string, sidecar domain.Sidecar) error {
	f.sidecars = append(f.sidecars, sidecar)
	return nil
}
