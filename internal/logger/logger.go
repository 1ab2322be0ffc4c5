// Package logger re-exports spruce/pkg/logger under the internal tree.
package logger

import (
	pkglogger "spruce/pkg/logger"
)

// Re-export types from pkg/logger
type (
	Logger = pkglogger.Logger
	Config = pkglogger.Config
	Format = pkglogger.Format
)

// Re-export constants from pkg/logger
const (
	DefaultTraceIDKey = pkglogger.DefaultTraceIDKey
	FormatJSON        = pkglogger.FormatJSON
	FormatText        = pkglogger.FormatText
)

// Re-export functions from pkg/logger
var (
	New                = pkglogger.New
	NewWithConfig      = pkglogger.NewWithConfig
	NewWithContext     = pkglogger.NewWithContext
	ContextWithTraceID = pkglogger.ContextWithTraceID
	TraceIDFromContext = pkglogger.TraceIDFromContext
)
