// Package provision implements side effects that follow station registration.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

// Hook runs after a station has been stored.
type Hook func(ctx context.Context, st *models.Station) error

// DataDir returns a hook creating <root>/<code> with mode 0755. An empty root
// yields a no-op hook.
func DataDir(root string) Hook {
	if root == "" {
		return func(context.Context, *models.Station) error { return nil }
	}
	return func(_ context.Context, st *models.Station) error {
		code := strings.TrimSpace(st.Code)
		if code == "" || code != filepath.Base(code) || code == "." || code == ".." {
			return fmt.Errorf("station code %q is not a valid directory name", st.Code)
		}
		dir := filepath.Join(root, code)
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("provision %s: %w", dir, err)
		}
		return nil
	}
}
