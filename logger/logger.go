// Package logger builds named loggers that write to stdout and a rotating
// file under the configured log directory.
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ptichkin/brooder/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger prefixed with name, writing to stdout and
// <dir>/<name>.log with rotation.
func New(cfg config.LoggingConfig, name string) *log.Logger {
	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name+".log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	mw := io.MultiWriter(os.Stdout, rotating)
	return log.New(mw, name+" ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
