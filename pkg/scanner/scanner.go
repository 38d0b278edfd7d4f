package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
)

// Scanner walks a directory tree and collects file metadata. It never
// opens or reads file contents.
type Scanner struct {
	cfg config.ScanConfig
}

// New creates a Scanner with the given configuration.
func New(cfg config.ScanConfig) *Scanner {
	return &Scanner{cfg: cfg}
}

// Scan returns metadata for every regular file under root, up to the
// configured file limit. Unreadable files are skipped with a warning.
func (s *Scanner) Scan(ctx context.Context, root string) ([]models.FileMetadata, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root: %w", err)
	}

	var out []models.FileMetadata
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		hidden := strings.HasPrefix(d.Name(), ".") && path != abs
		if d.IsDir() {
			if hidden && !s.cfg.IncludeHidden {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if hidden && !s.cfg.IncludeHidden {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping file without metadata")
			return nil
		}

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name())), ".")
		out = append(out, models.FileMetadata{
			Path:       path,
			Name:       d.Name(),
			Extension:  ext,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			FileType:   FileType(ext),
			IsHidden:   hidden,
		})
		if s.cfg.MaxFiles > 0 && len(out) >= s.cfg.MaxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", abs, err)
	}

	log.Debug().Int("files", len(out)).Str("root", abs).Msg("scan complete")
	return out, nil
}

var typeByExtension = map[string]string{}

func init() {
	add := func(t string, exts ...string) {
		for _, e := range exts {
			typeByExtension[e] = t
		}
	}
	add("document", "pdf", "doc", "docx", "txt", "rtf", "odt", "xls", "xlsx", "csv", "ppt", "pptx", "md")
	add("image", "jpg", "jpeg", "png", "gif", "bmp", "tiff", "svg", "webp", "ico", "heic")
	add("video", "mp4", "avi", "mov", "wmv", "mkv", "webm", "m4v", "mpg", "mpeg")
	add("audio", "mp3", "wav", "flac", "aac", "ogg", "wma", "m4a", "opus")
	add("archive", "zip", "rar", "7z", "tar", "gz", "bz2", "xz", "tgz")
	add("code", "py", "js", "ts", "html", "css", "java", "c", "h", "cpp", "cs", "php", "rb", "go", "rs", "sh", "sql", "xml", "json", "yaml", "yml", "toml")
	add("temporary", "tmp", "temp", "swp", "swo", "bak", "old", "lock")
	add("log", "log")
	add("executable", "exe", "msi", "dmg", "deb", "rpm", "appimage", "bin")
}

// FileType classifies an extension into a coarse category for the
// analysis prompt.
func FileType(ext string) string {
	if t, ok := typeByExtension[strings.ToLower(ext)]; ok {
		return t
	}
	return "other"
}
