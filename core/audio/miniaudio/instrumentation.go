package miniaudio

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/kkkz76/askvox/core/audio/miniaudio"

var logger = otelslog.NewLogger(scopeName)
