package trash

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
)

// Trash moves files into a trash directory instead of unlinking them,
// so every deletion the tool performs is reversible by the user.
type Trash struct {
	dir string
}

// New resolves the platform trash location, creating it if needed.
func New() (*Trash, error) {
	dir, err := defaultDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trash dir: %w", err)
	}
	return &Trash{dir: dir}, nil
}

// Dir returns the resolved trash directory.
func (t *Trash) Dir() string { return t.dir }

// Move relocates path into the trash and returns the new location.
// Name collisions get a timestamp suffix; cross-device moves fall back
// to copy-then-remove.
func (t *Trash) Move(path string) (string, error) {
	dest := filepath.Join(t.dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(t.dir, fmt.Sprintf("%s.%d", filepath.Base(path), time.Now().UnixNano()))
	}

	if err := os.Rename(path, dest); err == nil {
		log.Debug().Str("from", path).Str("to", dest).Msg("moved to trash")
		return dest, nil
	}

	// Rename across filesystems fails; copy and remove instead.
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("trash %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("remove after copy: %w", err)
	}
	log.Debug().Str("from", path).Str("to", dest).Msg("copied to trash")
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, ".Trash", "diskwise"), nil
	case "windows":
		return filepath.Join(home, ".diskwise", "trash"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "Trash", "files", "diskwise"), nil
		}
		return filepath.Join(home, ".local", "share", "Trash", "files", "diskwise"), nil
	}
}
