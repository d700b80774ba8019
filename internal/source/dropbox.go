package source

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/velasur/inventory-cli/pkg/dropbox"
)

// DropboxSource lists and downloads files from a Dropbox folder.
type DropboxSource struct {
	client dropbox.Client
	folder string
}

// NewDropboxSource creates a source over the given Dropbox folder.
func NewDropboxSource(client dropbox.Client, folder string) *DropboxSource {
	return &DropboxSource{client: client, folder: folder}
}

func (s *DropboxSource) List(ctx context.Context) ([]RemoteFile, error) {
	entries, err := s.client.ListFolder(ctx, s.folder, false)
	if err != nil {
		return nil, eris.Wrap(err, "source: list dropbox folder")
	}

	var files []RemoteFile
	for _, e := range entries {
		if !e.IsFile() {
			continue
		}
		files = append(files, RemoteFile{
			Path:           e.PathLower,
			Name:           e.Name,
			Size:           e.Size,
			ServerModified: e.ServerModified,
		})
	}

	zap.L().Debug("source: listed dropbox folder",
		zap.String("folder", s.folder),
		zap.Int("files", len(files)))

	return files, nil
}

func (s *DropboxSource) Download(ctx context.Context, file RemoteFile, destDir string) (string, error) {
	rc, err := s.client.Download(ctx, file.Path)
	if err != nil {
		return "", eris.Wrapf(err, "source: download %s", file.Path)
	}
	defer rc.Close() //nolint:errcheck

	dest := filepath.Join(destDir, file.Name)
	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "source: create local file")
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, rc)
	if err != nil {
		return "", eris.Wrapf(err, "source: write %s", dest)
	}

	zap.L().Debug("source: downloaded file",
		zap.String("path", file.Path),
		zap.Int64("bytes", n))

	return dest, nil
}
