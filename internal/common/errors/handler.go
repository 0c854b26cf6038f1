// internal/common/errors/handler.go
package errors

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler normalizes and logs errors that are absorbed rather than returned.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Report normalizes err, logs it and returns the normalized form. Enhancement
// and persistence failures log at warn, everything else at error.
func (h *ErrorHandler) Report(op string, err error, fields map[string]interface{}) *StandardError {
	stdErr := Normalize(err)
	if stdErr == nil {
		return nil
	}

	logFields := map[string]interface{}{
		"op":            op,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range fields {
		logFields[k] = v
	}

	if h.logger == nil {
		return stdErr
	}
	switch GetErrorCategory(stdErr.Code) {
	case "ENHANCEMENT", "PERSISTENCE":
		h.logger.Warn("operation degraded", logFields)
	default:
		h.logger.Error("operation failed", logFields)
	}
	return stdErr
}
