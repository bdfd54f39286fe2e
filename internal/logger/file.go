package logger

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures rotating file output for the process log.
type FileConfig struct {
	Path      string
	MaxSizeMB int // rotation threshold
	MaxFiles  int // rotated files retained
}

// NewFileWriter returns a writer that appends to cfg.Path and rotates
// the file once it reaches MaxSizeMB, keeping MaxFiles gzip-compressed
// backups. The gateway's delivery audit trail lives elsewhere; this is
// only the process log.
func NewFileWriter(cfg FileConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   true,
	}
}
