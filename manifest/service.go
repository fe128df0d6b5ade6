package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	"github.com/viant/spawnly/internal/yml"
)

// Service loads manifests from the virtual file system
type Service struct {
	fs        afs.Service
	baseURL   string
	fsOptions []storage.Option
}

// Option customises the manifest service
type Option func(s *Service)

// WithBaseURL sets the base location relative manifest URLs resolve against
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithFsOptions sets options passed to the virtual file system, for example
// an embedded file system.
func WithFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.fsOptions = options
	}
}

// New creates a new manifest service instance
func New(opts ...Option) *Service {
	ret := &Service{
		fs: afs.New(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Load loads a manifest from YAML at the specified URL
func (s *Service) Load(ctx context.Context, URL string) (*Manifest, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	location := URL
	if s.baseURL != "" {
		location = url.Join(s.baseURL, URL)
	}
	data, err := s.fs.DownloadWithURL(ctx, location, s.fsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest from %s: %w", location, err)
	}
	manifest, err := s.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest from %s: %w", location, err)
	}
	manifest.Source = location
	if manifest.Name == "" {
		manifest.Name = nameFromURL(location)
	}
	return manifest, nil
}

// Decode decodes a manifest from YAML
func (s *Service) Decode(data []byte) (*Manifest, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return parseManifest((*yml.Node)(&node).Root())
}

// nameFromURL extracts the manifest name from its URL (file name without
// extension)
func nameFromURL(URL string) string {
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
