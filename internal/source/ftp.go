package source

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP source.
type FTPOptions struct {
	Host     string // host or host:port, port 21 assumed
	User     string
	Password string
	Folder   string
	Timeout  time.Duration
}

// FTPSource lists and downloads files from an FTP folder.
type FTPSource struct {
	opts FTPOptions
}

// NewFTPSource creates an FTP-backed source.
func NewFTPSource(opts FTPOptions) *FTPSource {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPSource{opts: opts}
}

func (s *FTPSource) connect(ctx context.Context) (*ftp.ServerConn, error) {
	host := s.opts.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	zap.L().Debug("source: connecting to ftp", zap.String("host", host))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login(s.opts.User, s.opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp login")
	}
	return conn, nil
}

func (s *FTPSource) List(ctx context.Context) ([]RemoteFile, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "source: list ftp folder")
	}
	defer conn.Quit() //nolint:errcheck

	entries, err := conn.List(s.opts.Folder)
	if err != nil {
		return nil, eris.Wrapf(err, "source: list %s", s.opts.Folder)
	}

	var files []RemoteFile
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		files = append(files, RemoteFile{
			Path:           path.Join(s.opts.Folder, e.Name),
			Name:           e.Name,
			Size:           int64(e.Size),
			ServerModified: e.Time,
		})
	}

	return files, nil
}

func (s *FTPSource) Download(ctx context.Context, file RemoteFile, destDir string) (string, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return "", eris.Wrapf(err, "source: download %s", file.Path)
	}
	defer conn.Quit() //nolint:errcheck

	resp, err := conn.Retr(file.Path)
	if err != nil {
		return "", eris.Wrapf(err, "ftp retrieve %s", file.Path)
	}
	defer resp.Close() //nolint:errcheck

	dest := filepath.Join(destDir, file.Name)
	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "source: create local file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, resp); err != nil {
		return "", eris.Wrapf(err, "source: write %s", dest)
	}

	return dest, nil
}
