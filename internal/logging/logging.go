// Package logging 基于 charmbracelet/log 的结构化日志，实现 client.Logger
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ambertime/amberchain/client"
)

// Format 输出格式
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
)

// Logger 包装 *log.Logger，以 key/value 形式记录字段
type Logger struct {
	base *log.Logger
}

var _ client.Logger = (*Logger)(nil)

// ParseLevel 解析日志级别；空字符串为 info
func ParseLevel(level string) (log.Level, error) {
	if strings.TrimSpace(level) == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// ParseFormat 解析输出格式；空字符串为 text
func ParseFormat(format string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(format))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatLogfmt:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format %q, supported formats are text, json, logfmt", format)
	}
}

// New 创建日志器
func New(w io.Writer, level log.Level, format Format) *Logger {
	opts := log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "amberperm",
	}
	switch format {
	case FormatJSON:
		opts.Formatter = log.JSONFormatter
	case FormatLogfmt:
		opts.Formatter = log.LogfmtFormatter
	default:
		opts.Formatter = log.TextFormatter
	}
	return &Logger{base: log.NewWithOptions(w, opts)}
}

// Nop 丢弃所有输出
func Nop() *Logger {
	return &Logger{base: log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})}
}

// With 返回附带固定字段的子日志器
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{base: l.base.With(keyvals...)}
}

// SetLevel 调整级别
func (l *Logger) SetLevel(level log.Level) {
	l.base.SetLevel(level)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.base.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.base.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.base.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.base.Error(msg, args...) }
