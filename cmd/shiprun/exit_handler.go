package main

import (
	"os"

	"github.com/loykin/shiprun/internal/common"
)

// ExitHandler abstracts process termination so command code can be exercised
// in tests without killing the test binary.
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler logs through the shared logger and calls os.Exit.
type DefaultExitHandler struct {
	logger *common.Logger
}

func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{
		logger: common.GetLogger().WithComponent("main"),
	}
}

func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError reports an unrecoverable error and terminates with exit code 1.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	allKeyvals := append([]any{"error", err}, keyvals...)
	h.logger.Error(msg, allKeyvals...)
	h.Exit(1)
}

// Replaced with a fake in tests that drive fatal paths.
var exitHandler ExitHandler = NewDefaultExitHandler()
