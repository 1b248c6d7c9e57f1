package logger

import "go.uber.org/fx"

// Module installs the fx event logger and provides the injectable Logger.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
	fx.Provide(NewStdLogger),
)
