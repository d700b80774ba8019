// Package source abstracts the remote folder that inventory files arrive in.
// Two drivers exist: Dropbox and FTP. Both report file modification times so
// the sync job can skip files it has already processed.
package source

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/velasur/inventory-cli/internal/model"
)

// RemoteFile describes a candidate file in the monitored folder.
type RemoteFile struct {
	Path           string
	Name           string
	Size           int64
	ServerModified time.Time
}

// Source lists and downloads inventory files from a remote folder.
type Source interface {
	// List returns all files in the monitored folder.
	List(ctx context.Context) ([]RemoteFile, error)
	// Download fetches the file into destDir and returns the local path.
	Download(ctx context.Context, file RemoteFile, destDir string) (string, error)
}

// Filter narrows a listing down to files the sync job should process.
type Filter struct {
	// Extensions are lowercase without the dot, e.g. "csv", "xlsx".
	Extensions []string
	// MaxSize in bytes. Zero means unlimited.
	MaxSize int64
	// Known holds the modification times recorded by previous runs,
	// keyed by remote path.
	Known map[string]time.Time
}

// Apply returns the files that are new or modified since the last run and
// pass the extension and size checks. Skipped files are logged, not errors.
func (f Filter) Apply(files []RemoteFile) []RemoteFile {
	var out []RemoteFile
	for _, rf := range files {
		if !f.allowedExtension(rf.Name) {
			zap.L().Debug("source: skipping file with unsupported extension",
				zap.String("file", rf.Name))
			continue
		}
		if f.MaxSize > 0 && rf.Size > f.MaxSize {
			zap.L().Warn("source: skipping oversized file",
				zap.String("file", rf.Name),
				zap.Int64("size", rf.Size),
				zap.Int64("max", f.MaxSize))
			continue
		}
		if seen, ok := f.Known[rf.Path]; ok && !rf.ServerModified.After(seen) {
			continue
		}
		out = append(out, rf)
	}
	return out
}

func (f Filter) allowedExtension(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	if len(f.Extensions) == 0 {
		return true
	}
	for _, allowed := range f.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// States converts processed files back into store records.
func States(files []RemoteFile) []model.FileState {
	out := make([]model.FileState, 0, len(files))
	for _, rf := range files {
		out = append(out, model.FileState{
			Path:           rf.Path,
			ServerModified: rf.ServerModified,
		})
	}
	return out
}
