package portaudio

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/kkkz76/askvox/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)
