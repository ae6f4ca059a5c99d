// Package backup reads and writes the JSON backup document of one user.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/repository"
)

// Version is the document version written by Export.
const Version = 1

// ErrUnsupportedVersion is returned by Read for documents from a newer release.
var ErrUnsupportedVersion = errors.New("versão de backup não suportada")

// Document is the backup file layout.
type Document struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exported_at"`
	Settings   *models.Settings      `json:"settings,omitempty"`
	Clients    []models.Client       `json:"clients"`
	Materials  []models.Material     `json:"materials"`
	Inks       []models.Ink          `json:"inks"`
	Services   []models.ServiceOrder `json:"services"`
}

// Source yields the rows to back up.
type Source interface {
	Export(ctx context.Context) (repository.Dataset, error)
}

// Target receives a restored dataset.
type Target interface {
	ReplaceAll(ctx context.Context, d repository.Dataset) (repository.ImportStats, error)
}

// Export builds a document from src.
func Export(ctx context.Context, src Source, now time.Time) (Document, error) {
	d, err := src.Export(ctx)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Version:    Version,
		ExportedAt: now.UTC(),
		Settings:   d.Settings,
		Clients:    nonNil(d.Clients),
		Materials:  nonNil(d.Materials),
		Inks:       nonNil(d.Inks),
		Services:   nonNil(d.Services),
	}, nil
}

// Import replaces every row of the target with the contents of doc.
func Import(ctx context.Context, dst Target, doc Document) (repository.ImportStats, error) {
	return dst.ReplaceAll(ctx, repository.Dataset{
		Settings:  doc.Settings,
		Clients:   doc.Clients,
		Materials: doc.Materials,
		Inks:      doc.Inks,
		Services:  doc.Services,
	})
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Read decodes a document. A missing version is read as version 1.
func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode backup: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = Version
	}
	if doc.Version > Version {
		return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return doc, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
