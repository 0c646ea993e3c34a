package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	ghconnector "github.com/ternarybob/concierge/internal/connectors/github"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/workers"
)

// GitHubSource reads procedure documents from a folder of a GitHub repository
type GitHubSource struct {
	connector  *ghconnector.Connector
	extensions []string
	workers    int
	parser     *DocumentParser
	logger     arbor.ILogger
}

// NewGitHubSource creates the source. Without an owner and repo the source is
// returned unconfigured.
func NewGitHubSource(config common.GitHubSourceConfig, parser *DocumentParser, logger arbor.ILogger) *GitHubSource {
	source := &GitHubSource{
		extensions: config.Extensions,
		workers:    config.Workers,
		parser:     parser,
		logger:     logger,
	}

	if config.Owner == "" || config.Repo == "" {
		return source
	}

	connector, err := ghconnector.NewConnector(config)
	if err != nil {
		logger.Warn().Err(err).Msg("GitHub procedure source disabled")
		return source
	}
	source.connector = connector
	return source
}

// Name identifies the source in logs
func (s *GitHubSource) Name() string {
	if s.connector == nil {
		return "github"
	}
	return "github:" + s.connector.Repository()
}

// Configured is true when the repository connector was created
func (s *GitHubSource) Configured() bool {
	return s.connector != nil
}

// Fetch lists the folder and parses every supported file. Failing to list the
// folder or to download any file fails the fetch; files that download but
// fail to parse are skipped. Files are downloaded concurrently but returned in
// listing order.
func (s *GitHubSource) Fetch(ctx context.Context) ([]models.ProcedureItem, error) {
	if s.connector == nil {
		return nil, ErrNotConfigured
	}

	files, err := s.connector.ListFiles(ctx, s.extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}

	prefix := ""
	if folder := s.connector.Folder(); folder != "" {
		prefix = folder + "/"
	}

	parsed := make([]*models.ProcedureItem, len(files))
	pool := workers.NewPool(ctx, s.workers, s.logger)
	for i, listed := range files {
		relPath := strings.TrimPrefix(listed.Path, prefix)
		if !s.parser.Supports(relPath) {
			continue
		}

		err := pool.Submit(func(ctx context.Context) error {
			file, err := s.connector.GetFileContent(ctx, listed.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", listed.Path, err)
			}

			item, err := s.parseFile(ctx, listed, file, relPath)
			if err != nil {
				s.logger.Warn().Err(err).Str("path", listed.Path).Msg("Skipping unparseable procedure file")
				return nil
			}
			parsed[i] = &item
			return nil
		})
		if err != nil {
			break
		}
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	if errs := pool.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("failed to download %d procedure file(s): %w", len(errs), errors.Join(errs...))
	}

	items := make([]models.ProcedureItem, 0, len(files))
	relPaths := make([]string, 0, len(files))
	for i, item := range parsed {
		if item != nil {
			items = append(items, *item)
			relPaths = append(relPaths, strings.TrimPrefix(files[i].Path, prefix))
		}
	}
	uniqueIDs(items, relPaths, s.logger)
	return items, nil
}

func (s *GitHubSource) parseFile(ctx context.Context, listed ghconnector.RepoFile, file *ghconnector.RepoFile, relPath string) (models.ProcedureItem, error) {
	link := file.URL
	if link == "" {
		link = listed.URL
	}

	return s.parser.Parse(ctx, Document{
		RelPath: relPath,
		Content: []byte(file.Content),
		Link:    link,
	})
}

var _ interfaces.KnowledgeSource[models.ProcedureItem] = (*GitHubSource)(nil)
