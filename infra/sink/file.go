package sink

import (
	"context"
	"fmt"
	"os"
	"strings"

	"itchvwap/domain/vwap"
)

const DefaultPath = "vwap.txt"

// File writes the plain-text report. The session start truncates the file;
// every later write appends, so an aborted run leaves complete sections.
type File struct {
	path string
	f    *os.File
}

func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

func (s *File) Path() string { return s.path }

func (s *File) SessionStarted(_ context.Context, ts uint64) error {
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("create report %s: %w", s.path, err)
	}
	s.f = f
	return s.write(StartLine(ts) + "\n")
}

func (s *File) SessionEnded(_ context.Context, ts uint64) error {
	return s.write(EndLine(ts) + "\n")
}

func (s *File) Publish(_ context.Context, r vwap.Report) error {
	return s.write(Render(r))
}

func (s *File) write(text string) error {
	if s.f == nil {
		// Reports without a session start are appended to whatever exists.
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open report %s: %w", s.path, err)
		}
		s.f = f
	}
	if _, err := s.f.WriteString(text); err != nil {
		return fmt.Errorf("write report %s: %w", s.path, err)
	}
	return nil
}

func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func StartLine(ts uint64) string {
	return fmt.Sprintf("Start of Trading Hours - Timestamp: %d", ts)
}

func EndLine(ts uint64) string {
	return fmt.Sprintf("End of Trading Hours - Timestamp: %d", ts)
}

// Render formats one report section: a blank-line separated header followed
// by one "<symbol>: <vwap>" line per instrument.
func Render(r vwap.Report) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(r.Header())
	b.WriteString("\n")
	for _, l := range r.Lines {
		b.WriteString(l.Text())
		b.WriteString("\n")
	}
	return b.String()
}
