// Package logger builds the zerolog logger shared by the client facade, the
// connection layer, and the side-effect dispatcher.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0664

// Build configures a logger sink before Make assembles the logger.
type Build struct {
	writer io.Writer
	path   string
	level  zerolog.Level
}

func New() *Build {
	return &Build{writer: os.Stderr, level: zerolog.InfoLevel}
}

// FromPath appends log output to the file at path.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

// FromBuffer writes log output to w.
func (b *Build) FromBuffer(w io.Writer) *Build {
	b.writer = w
	return b
}

// Level sets the minimum emitted level.
func (b *Build) Level(level zerolog.Level) *Build {
	b.level = level
	return b
}

// Make assembles the logger.
func (b *Build) Make() (zerolog.Logger, error) {
	writer := b.writer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), err
		}
		writer = zerolog.SyncWriter(f)
	}
	return zerolog.New(writer).Level(b.level).With().Timestamp().Logger(), nil
}
