package util

import (
	"github.com/samber/oops"
	"go.uber.org/zap"
)

// LogError logs err at error level. oops errors contribute their code and
// context as structured fields.
func LogError(logger *zap.Logger, msg string, err error) {
	if logger == nil || err == nil {
		return
	}
	fields := []zap.Field{zap.Error(err)}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != "" {
			fields = append(fields, zap.Any("code", code))
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, zap.Any("context", ctx))
		}
	}
	logger.Error(msg, fields...)
}
