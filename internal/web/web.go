// Package web hosts the single-page cafe client.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/labstack/echo/v4"

	"go-cafe-web/internal/config"
)

//go:embed static
var embedded embed.FS

// Assets is the file tree the client is served from.
type Assets struct {
	fsys fs.FS
}

// NewAssets returns the configured asset tree: web.dir when set, the
// embedded copy otherwise. It returns nil when hosting is disabled.
func NewAssets(cfg *config.Config) (*Assets, error) {
	if cfg.Web.Disabled {
		return nil, nil
	}
	if cfg.Web.Dir != "" {
		return &Assets{fsys: os.DirFS(cfg.Web.Dir)}, nil
	}
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		return nil, fmt.Errorf("web: embedded assets: %w", err)
	}
	return &Assets{fsys: sub}, nil
}

// Handler serves files from the asset tree; directories resolve to index.html
// and unknown paths are 404.
func (a *Assets) Handler() echo.HandlerFunc {
	return echo.StaticDirectoryHandler(a.fsys, false)
}
