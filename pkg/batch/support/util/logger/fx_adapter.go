package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx container events into the dimtime logger.
type FxLoggerAdapter struct {
	log Logger
}

// NewFxLoggerAdapter creates a new FxLoggerAdapter writing to the standard logger.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{log: NewStdLogger()}
}

// LogEvent logs events from fx. Wiring noise goes to DEBUG, failures to ERROR.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.log.Errorf("OnStart hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
		} else {
			l.log.Debugf("OnStart hook executed: %s (%s)", trimFuncName(e.FunctionName), e.Runtime)
		}
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.log.Errorf("OnStop hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.log.Errorf("Provide failed for %s: %v", e.ConstructorName, e.Err)
			return
		}
		for _, rtype := range e.OutputTypeNames {
			l.log.Debugf("Provided: %s", rtype)
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			l.log.Errorf("Supply failed for %s: %v", e.TypeName, e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.log.Errorf("Invoke failed: %s, error: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		l.log.Debugf("Stopping signal received: %s", e.Signal)
	case *fxevent.RollingBack:
		l.log.Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.Started:
		if e.Err != nil {
			l.log.Errorf("Start failed: %v", e.Err)
		} else {
			l.log.Debugf("Application started.")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.log.Errorf("Logger initialization failed: %v", e.Err)
		}
	}
}

// trimFuncName strips anonymous function suffixes such as ".func1" from fx function names.
func trimFuncName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
