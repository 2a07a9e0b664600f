// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts the code and context. Classified errors also
// get their kind so 4xx and 5xx failures can be told apart in aggregation.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, msg, err)
}

// LogErrorContext is LogError with a context for trace and request attributes.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	attrs := []any{"error", err.Error()}
	if kind := KindOf(err); kind != nil {
		attrs = append(attrs, "kind", kind.Error())
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, "code", code)
		}
		if ctxAttrs := oopsErr.Context(); len(ctxAttrs) > 0 {
			attrs = append(attrs, "context", ctxAttrs)
		}
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
