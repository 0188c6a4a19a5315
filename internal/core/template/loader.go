package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/antoineross/supabase-go"

	"jobscout/internal/config"
	"jobscout/internal/logger"
)

// GenericCV is used whenever the submitted template cannot be read.
const GenericCV = "Professional with experience in software development and analytics."

// RemotePrefix marks template paths stored in the Supabase bucket.
const RemotePrefix = "supabase://"

// maxTemplateBytes bounds what is read into memory for one template.
const maxTemplateBytes = 1 << 20

// Fetcher downloads one object from a storage bucket.
type Fetcher func(bucket, path string) ([]byte, error)

type Loader struct {
	dataDir string
	bucket  string
	fetch   Fetcher
	log     *logger.Logger
}

// NewLoader reads local templates from cfg.DataDir. Remote templates are
// enabled when the Supabase credentials are configured.
func NewLoader(cfg config.Config) *Loader {
	l := &Loader{dataDir: cfg.DataDir, bucket: cfg.SupabaseBucket, log: logger.New("TemplateLoader")}
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
		if err != nil {
			l.log.LogWarnf("failed to initialize Supabase client: %v", err)
		} else {
			l.fetch = func(bucket, path string) ([]byte, error) {
				return client.Storage.DownloadFile(bucket, path)
			}
		}
	}
	return l
}

// WithFetcher replaces the remote fetcher.
func (l *Loader) WithFetcher(f Fetcher) *Loader {
	l.fetch = f
	return l
}

// Read returns the template text at path.
func (l *Loader) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty template path")
	}

	var (
		data []byte
		err  error
	)
	if rest, ok := strings.CutPrefix(path, RemotePrefix); ok {
		data, err = l.readRemote(rest)
	} else {
		data, err = l.readLocal(path)
	}
	if err != nil {
		return "", err
	}
	if len(data) > maxTemplateBytes {
		data = data[:maxTemplateBytes]
	}
	text := strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	if text == "" {
		return "", fmt.Errorf("template %s is empty", path)
	}
	return text, nil
}

// Load is Read with the generic CV as fallback.
func (l *Loader) Load(ctx context.Context, path string) string {
	text, err := l.Read(ctx, path)
	if err != nil {
		l.log.LogWarnf("Could not read template CV %q, using generic CV: %v", path, err)
		return GenericCV
	}
	return text
}

func (l *Loader) readRemote(object string) ([]byte, error) {
	if l.fetch == nil {
		return nil, fmt.Errorf("supabase storage not configured")
	}
	bucket := l.bucket
	// Without a configured bucket the first path segment names it.
	if b, rest, ok := strings.Cut(object, "/"); ok && bucket == "" {
		bucket, object = b, rest
	}
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("invalid remote template path %q", object)
	}
	data, err := l.fetch(bucket, object)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func (l *Loader) readLocal(path string) ([]byte, error) {
	root, err := filepath.Abs(l.dataDir)
	if err != nil {
		return nil, err
	}
	// Rooting the path before cleaning keeps ".." inside the data dir.
	return os.ReadFile(filepath.Join(root, filepath.Clean("/"+path)))
}
