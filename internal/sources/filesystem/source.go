// Package filesystem reads catalog targets from a YAML file and watches that
// file for changes.
//
// The file format is:
//
//	targets:
//	  - relationshipId: rel-orders
//	    versionStamp: "3"
//	    targetName: orders
//	    targetElementId: guid-1234
//	    targetElementType: table
//	    configurationProperties:
//	      schema: sales
//
// Entries without a versionStamp get one derived from a hash of their
// content, so editing an entry is enough to trigger an update.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"targetsync/internal/catalog"
)

// File is the document stored in the targets file.
type File struct {
	Targets []catalog.TargetDescriptor `yaml:"targets"`
}

// Source is a TargetSource backed by a YAML file.
//
// The file is read when a listing starts at offset zero; later pages are
// served from that read so one sweep sees one consistent version of the file.
type Source struct {
	path string

	mu       sync.Mutex
	snapshot []catalog.TargetDescriptor
}

// NewSource creates a source for the file at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the targets file path.
func (s *Source) Path() string { return s.path }

func (s *Source) List(ctx context.Context, offset, pageSize int) ([]catalog.TargetDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if offset == 0 || s.snapshot == nil {
		targets, err := ReadFile(s.path)
		if err != nil {
			return nil, err
		}
		s.snapshot = targets
	}

	if offset >= len(s.snapshot) {
		return nil, nil
	}
	end := min(offset+pageSize, len(s.snapshot))
	page := make([]catalog.TargetDescriptor, 0, end-offset)
	for _, d := range s.snapshot[offset:end] {
		page = append(page, d.Clone())
	}
	return page, nil
}

// ReadFile parses the targets file and fills in derived version stamps.
func ReadFile(path string) ([]catalog.TargetDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("targets file %s: %w", path, catalog.ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("read targets file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a targets document.
func Parse(data []byte) ([]catalog.TargetDescriptor, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}

	targets := make([]catalog.TargetDescriptor, 0, len(f.Targets))
	for i, d := range f.Targets {
		if d.RelationshipID == "" {
			return nil, fmt.Errorf("targets[%d]: relationshipId is required", i)
		}
		if d.VersionStamp == "" {
			stamp, err := catalog.ContentStamp(d)
			if err != nil {
				return nil, fmt.Errorf("targets[%d]: %w", i, err)
			}
			d.VersionStamp = stamp
		}
		targets = append(targets, d)
	}
	return targets, nil
}

// WriteFile stores targets at path, replacing the file atomically.
func WriteFile(path string, targets []catalog.TargetDescriptor) error {
	data, err := yaml.Marshal(File{Targets: targets})
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write targets file: %w", err)
	}
	return os.Rename(tmp, path)
}
