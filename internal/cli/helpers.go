package cli

import (
	"io"
	"log/slog"

	"github.com/aretw0/coach/internal/config"
	"github.com/aretw0/coach/internal/logging"
)

// NewLogger builds the process logger from cfg. Logs always go to w (stderr
// in the CLI) so they never mix with chat output or JSON-RPC on stdout.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if cfg.Format == "json" {
		return logging.NewJSON(w, cfg.SlogLevel())
	}
	return logging.NewText(w, cfg.SlogLevel())
}
