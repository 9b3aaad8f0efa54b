// FILE: filesink.go
package hotwire

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileSink writes rendered lines to a static-named log file and rotates it
// by renaming to a timestamped archive once it exceeds the size limit.
// Cleanup of archives runs after every rotation: oldest-first deletion when
// the directory exceeds the total size limit, plus retention-period expiry.
type FileSink struct {
	directory       string
	name            string
	extension       string
	maxSize         int64 // rotate threshold, bytes; 0 disables rotation
	maxTotalSize    int64 // archive cleanup threshold, bytes; 0 disables
	retention       time.Duration
	timestampFormat string
	source          bool

	file        *os.File
	currentSize int64
	buf         []byte

	rotations uint64
	deletions uint64
}

// FileSinkOption customizes a FileSink.
type FileSinkOption func(*FileSink)

// WithFileName sets the base name of the active log file (default "log").
func WithFileName(name string) FileSinkOption {
	return func(s *FileSink) {
		if name != "" {
			s.name = name
		}
	}
}

// WithExtension sets the log file extension without the dot (default "log").
func WithExtension(ext string) FileSinkOption {
	return func(s *FileSink) {
		s.extension = ext
	}
}

// WithMaxSizeKB sets the rotation threshold for the active file.
func WithMaxSizeKB(kb int64) FileSinkOption {
	return func(s *FileSink) {
		s.maxSize = kb * 1024
	}
}

// WithMaxTotalSizeKB caps the combined size of active and archived files.
func WithMaxTotalSizeKB(kb int64) FileSinkOption {
	return func(s *FileSink) {
		s.maxTotalSize = kb * 1024
	}
}

// WithRetentionPeriod removes archives older than the period on rotation.
func WithRetentionPeriod(d time.Duration) FileSinkOption {
	return func(s *FileSink) {
		s.retention = d
	}
}

// WithFileSourceLocation includes each statement's file:line in rendered lines.
func WithFileSourceLocation(enabled bool) FileSinkOption {
	return func(s *FileSink) {
		s.source = enabled
	}
}

// WithFileTimestampFormat sets the time layout used for rendered lines.
func WithFileTimestampFormat(layout string) FileSinkOption {
	return func(s *FileSink) {
		if layout != "" {
			s.timestampFormat = layout
		}
	}
}

// NewFileSink opens (or creates) the active log file under directory.
func NewFileSink(directory string, opts ...FileSinkOption) (*FileSink, error) {
	s := &FileSink{
		directory:       directory,
		name:            "log",
		extension:       "log",
		timestampFormat: time.RFC3339Nano,
		buf:             make([]byte, 0, 512),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmtErrorf("failed to create log directory '%s': %w", directory, err)
	}
	if err := s.openActiveFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) Write(ts time.Time, level Level, loggerName, location, msg string) error {
	if !s.source {
		location = ""
	}
	s.buf = appendLine(s.buf[:0], ts, level, loggerName, location, msg, s.timestampFormat, false)
	if s.maxSize > 0 && s.currentSize+int64(len(s.buf)) > s.maxSize {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	n, err := s.file.Write(s.buf)
	s.currentSize += int64(n)
	if err != nil {
		return fmtErrorf("failed to write log file '%s': %w", s.file.Name(), err)
	}
	return nil
}

func (s *FileSink) Flush() error {
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmtErrorf("failed to sync log file '%s': %w", s.file.Name(), err)
	}
	return nil
}

// Close syncs and closes the active file. Engine.Shutdown calls this for
// sinks that implement io.Closer.
func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Sync()
	err = combineErrors(err, s.file.Close())
	s.file = nil
	return err
}

// activeFilePath returns the full path of the static-named log file.
func (s *FileSink) activeFilePath() string {
	filename := s.name
	if s.extension != "" {
		filename = s.name + "." + s.extension
	}
	return filepath.Join(s.directory, filename)
}

// archiveFileName creates a timestamped name for the rotated-out file.
func (s *FileSink) archiveFileName(timestamp time.Time) string {
	tsFormat := timestamp.Format("060102_150405")
	nano := timestamp.Nanosecond()
	if s.extension != "" {
		return fmt.Sprintf("%s_%s_%d.%s", s.name, tsFormat, nano, s.extension)
	}
	return fmt.Sprintf("%s_%s_%d", s.name, tsFormat, nano)
}

func (s *FileSink) openActiveFile() error {
	file, err := os.OpenFile(s.activeFilePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmtErrorf("failed to open/create log file '%s': %w", s.activeFilePath(), err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmtErrorf("failed to stat log file '%s': %w", s.activeFilePath(), err)
	}
	s.file = file
	s.currentSize = info.Size()
	return nil
}

// rotate closes the active file, renames it to an archive name, reopens the
// static path, and cleans up archives.
func (s *FileSink) rotate() error {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmtErrorf("failed to close log file before rotation: %w", err)
		}
		s.file = nil
		archivePath := filepath.Join(s.directory, s.archiveFileName(time.Now()))
		if err := os.Rename(s.activeFilePath(), archivePath); err != nil {
			return fmtErrorf("failed to rename log file from '%s' to '%s': %w", s.activeFilePath(), archivePath, err)
		}
	}
	if err := s.openActiveFile(); err != nil {
		return fmtErrorf("failed to create new log file after rotation: %w", err)
	}
	s.rotations++
	s.cleanupArchives()
	return nil
}

type archiveMeta struct {
	name    string
	modTime time.Time
	size    int64
}

// listArchives returns archived log files, active file excluded.
func (s *FileSink) listArchives() []archiveMeta {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil
	}
	activeName := filepath.Base(s.activeFilePath())
	targetExt := "." + s.extension
	var archives []archiveMeta
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == activeName {
			continue
		}
		if s.extension != "" && filepath.Ext(entry.Name()) != targetExt {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			continue
		}
		archives = append(archives, archiveMeta{name: entry.Name(), modTime: info.ModTime(), size: info.Size()})
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].modTime.Before(archives[j].modTime) })
	return archives
}

// cleanupArchives enforces the retention period and the total size cap,
// deleting oldest archives first. The active file is never deleted.
func (s *FileSink) cleanupArchives() {
	archives := s.listArchives()
	if len(archives) == 0 {
		return
	}

	deleted := make(map[string]bool)
	if s.retention > 0 {
		cutoff := time.Now().Add(-s.retention)
		for _, a := range archives {
			if a.modTime.Before(cutoff) {
				if os.Remove(filepath.Join(s.directory, a.name)) == nil {
					deleted[a.name] = true
					s.deletions++
				}
			}
		}
	}

	if s.maxTotalSize <= 0 {
		return
	}
	total := s.currentSize
	for _, a := range archives {
		if !deleted[a.name] {
			total += a.size
		}
	}
	for _, a := range archives {
		if total <= s.maxTotalSize {
			break
		}
		if deleted[a.name] {
			continue
		}
		if os.Remove(filepath.Join(s.directory, a.name)) == nil {
			total -= a.size
			s.deletions++
		}
	}
}
