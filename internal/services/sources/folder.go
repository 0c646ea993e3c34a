package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
)

// FolderSource reads procedure documents from a local directory
type FolderSource struct {
	dir      string
	include  []string
	linkBase string
	parser   *DocumentParser
	logger   arbor.ILogger
	readFile func(name string) ([]byte, error)
}

// NewFolderSource creates a source for config.Dir. Include patterns are
// doublestar globs relative to the directory.
func NewFolderSource(config common.ProcedureSourceConfig, parser *DocumentParser, logger arbor.ILogger) *FolderSource {
	include := config.Include
	if len(include) == 0 {
		include = []string{"**/*.md"}
	}
	return &FolderSource{
		dir:      config.Dir,
		include:  include,
		linkBase: strings.TrimSuffix(config.LinkBaseURL, "/"),
		parser:   parser,
		logger:   logger,
		readFile: os.ReadFile,
	}
}

// Name identifies the source in logs
func (s *FolderSource) Name() string {
	return "folder:" + s.dir
}

// Configured is true when a directory is set
func (s *FolderSource) Configured() bool {
	return s.dir != ""
}

// Fetch parses every matching file. Files that fail to parse are logged and
// skipped; a missing directory or an unreadable file fails the whole fetch.
func (s *FolderSource) Fetch(ctx context.Context) ([]models.ProcedureItem, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, fmt.Errorf("procedure directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("procedure directory %s is not a directory", s.dir)
	}

	paths, err := s.matchFiles()
	if err != nil {
		return nil, err
	}

	items := make([]models.ProcedureItem, 0, len(paths))
	relPaths := make([]string, 0, len(paths))
	for _, file := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		relPath, err := filepath.Rel(s.dir, file)
		if err != nil {
			continue
		}
		relPath = filepath.ToSlash(relPath)

		if !s.parser.Supports(relPath) {
			continue
		}

		content, err := s.readFile(file)
		if err != nil {
			return nil, fmt.Errorf("read procedure %s: %w", relPath, err)
		}

		item, err := s.parser.Parse(ctx, Document{
			RelPath: relPath,
			Content: content,
			Link:    s.link(relPath),
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("path", relPath).Msg("Skipping unparseable procedure file")
			continue
		}
		items = append(items, item)
		relPaths = append(relPaths, relPath)
	}

	uniqueIDs(items, relPaths, s.logger)
	return items, nil
}

// matchFiles expands the include globs into a sorted, de-duplicated file list
func (s *FolderSource) matchFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range s.include {
		matches, err := doublestar.FilepathGlob(filepath.Join(s.dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if seen[match] {
				continue
			}
			if info, err := os.Stat(match); err != nil || info.IsDir() {
				continue
			}
			seen[match] = true
			files = append(files, match)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (s *FolderSource) link(relPath string) string {
	if s.linkBase == "" {
		return ""
	}
	return s.linkBase + "/" + relPath
}

var _ interfaces.KnowledgeSource[models.ProcedureItem] = (*FolderSource)(nil)
