package gpu

import (
	"log/slog"

	"github.com/gogpu/meshpaint"
)

// slogger returns the logger configured with meshpaint.SetLogger.
// All logging in internal/gpu goes through this function.
func slogger() *slog.Logger { return meshpaint.Logger() }
