package pdfmeta

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// Embedder writes accepted metadata into a PDF's document information
// slots and produces the processed copy. The processed-area naming is
// delegated to the caller; this type only guarantees the write is atomic.
type Embedder struct {
	processedPath func(name string) (string, error)
}

func NewEmbedder(processedPath func(name string) (string, error)) *Embedder {
	return &Embedder{processedPath: processedPath}
}

func (e *Embedder) Embed(_ context.Context, workingPath string, meta domain.DocumentMetadata, targetName string) (string, error) {
	target, err := e.processedPath(targetName)
	if err != nil {
		return "", fmt.Errorf("reserve processed name: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".embed-*")
	if err != nil {
		return "", fmt.Errorf("create embed temp: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	properties := map[string]string{}
	if meta.SuggestedFilename != "" {
		properties["Title"] = strings.TrimSuffix(targetName, filepath.Ext(targetName))
	}
	if meta.Correspondent != "" {
		properties["Author"] = meta.Correspondent
	} else if meta.Sender != "" {
		properties["Author"] = meta.Sender
	}
	if meta.Category != "" {
		properties["Subject"] = meta.Category
	}
	if len(meta.Tags) > 0 {
		properties["Keywords"] = strings.Join(meta.Tags, ", ")
	}

	if len(properties) > 0 {
		if err := api.AddPropertiesFile(workingPath, tmpName, properties, nil); err != nil {
			os.Remove(tmpName)
			return "", fmt.Errorf("embed pdf properties: %w", err)
		}
	} else {
		if err := copyFile(workingPath, tmpName); err != nil {
			os.Remove(tmpName)
			return "", fmt.Errorf("copy working file: %w", err)
		}
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("move processed file: %w", err)
	}
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
