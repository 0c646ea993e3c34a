package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v57/github"
)

// RepoFile represents a file from a GitHub repository
type RepoFile struct {
	Path        string // Full path: sops/listings/open-house.md
	Folder      string // Parent folder: sops/listings
	Name        string // File name: open-house.md
	SHA         string
	Size        int
	Content     string // Decoded content, set by GetFileContent
	URL         string // Browser URL
	DownloadURL string
}

// ListFiles returns every blob under the connector's folder whose extension is
// in extensions (all files when empty). Likely binary files are skipped.
func (c *Connector) ListFiles(ctx context.Context, extensions []string) ([]RepoFile, error) {
	tree, _, err := c.client.Git.GetTree(ctx, c.owner, c.repo, c.branch, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	extMap := make(map[string]bool)
	for _, ext := range extensions {
		extMap[strings.ToLower(ext)] = true
	}

	prefix := ""
	if c.path != "" {
		prefix = c.path + "/"
	}

	var files []RepoFile
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}

		filePath := entry.GetPath()
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}

		if len(extMap) > 0 && !extMap[strings.ToLower(path.Ext(filePath))] {
			continue
		}
		if isBinaryExtension(filePath) {
			continue
		}

		files = append(files, RepoFile{
			Path:   filePath,
			Folder: path.Dir(filePath),
			Name:   path.Base(filePath),
			SHA:    entry.GetSHA(),
			Size:   entry.GetSize(),
			URL:    fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", c.owner, c.repo, c.branch, filePath),
		})
	}

	return files, nil
}

// GetFileContent fetches and decodes a single file
func (c *Connector) GetFileContent(ctx context.Context, filePath string) (*RepoFile, error) {
	content, _, _, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, filePath, &github.RepositoryContentGetOptions{
		Ref: c.branch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file content: %w", err)
	}

	if content == nil {
		return nil, fmt.Errorf("file not found: %s", filePath)
	}

	file := &RepoFile{
		Path:        content.GetPath(),
		Folder:      path.Dir(content.GetPath()),
		Name:        content.GetName(),
		SHA:         content.GetSHA(),
		Size:        content.GetSize(),
		URL:         content.GetHTMLURL(),
		DownloadURL: content.GetDownloadURL(),
	}

	if content.Content != nil {
		encoded := strings.ReplaceAll(*content.Content, "\n", "")
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode content: %w", err)
		}
		file.Content = string(decoded)
	}

	return file, nil
}

// isBinaryExtension checks if a file is likely binary based on extension
func isBinaryExtension(filePath string) bool {
	binaryExts := map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".svg": true,
		".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
		".zip": true, ".tar": true, ".gz": true,
		".mp3": true, ".mp4": true, ".mov": true,
	}
	return binaryExts[strings.ToLower(path.Ext(filePath))]
}
