package logging

import (
	"errors"
	"io"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	fileMaxSizeMB  = 100
	fileMaxBackups = 5
	fileMaxAgeDays = 14
)

// FileWriter returns a size-rotated log file at path. Rotated files are
// gzip-compressed.
func FileWriter(path string) (io.WriteCloser, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("logging: file path required")
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}, nil
}
