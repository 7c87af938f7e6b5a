// Package writer publishes the sales artifacts of one report date.
package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"azsales/internal/chart"
	"azsales/internal/formatter"
	"azsales/internal/logger"
	"azsales/internal/models"
)

// Options selects where and what the writer emits.
type Options struct {
	BasePath string
	Charts   bool
	Workbook bool
}

// tempFile is the subset of *os.File used while staging.
type tempFile interface {
	io.Writer
	Name() string
	Sync() error
	Close() error
}

type artifact struct {
	name string
	data []byte
}

type staged struct {
	tmp    string
	final  string
	backup string
}

// Writer renders artifacts in memory, stages them next to their final paths
// and renames them into place only after every artifact was staged.
type Writer struct {
	log        *logger.Logger
	createTemp func(dir, pattern string) (tempFile, error)
	rename     func(oldpath, newpath string) error
	opts       Options
}

// New creates a writer for the given options.
func New(opts Options, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Discard()
	}

	return &Writer{
		opts:       opts,
		log:        log,
		createTemp: createOSTemp,
		rename:     os.Rename,
	}
}

func createOSTemp(dir, pattern string) (tempFile, error) {
	return os.CreateTemp(dir, pattern)
}

// PartitionDir returns <base>/<YYYY>/<MM>/<DD> for the date in Shanghai.
func PartitionDir(base string, date time.Time) string {
	d := date.In(models.Shanghai)

	return filepath.Join(base, fmt.Sprintf("%04d", d.Year()), fmt.Sprintf("%02d", int(d.Month())), fmt.Sprintf("%02d", d.Day()))
}

// render produces every artifact of the partition without touching the filesystem.
func (w *Writer) render(date time.Time, set *models.SalesSet) ([]artifact, error) {
	tables := buildTables(set)
	artifacts := make([]artifact, 0, len(tables)+2+len(chart.Ranked)*len(models.Periods))

	for _, t := range tables {
		data, err := encodeCSV(t)
		if err != nil {
			return nil, &IOError{Op: "render", Path: t.file, Err: err}
		}

		artifacts = append(artifacts, artifact{name: t.file, data: data})
	}

	report := formatter.BuildReport(date, set, formatter.ReportOptions{Charts: w.opts.Charts})
	artifacts = append(artifacts, artifact{name: ReportFile, data: []byte(report)})

	if w.opts.Charts {
		reportDate := models.FormatDate(date)

		for _, entityType := range chart.Ranked {
			for _, period := range models.Periods {
				bars := chart.Top(set.Filter(entityType, period), chart.TopN)
				artifacts = append(artifacts, artifact{
					name: chart.FileName(entityType, period),
					data: chart.RenderSVG(chart.Title(entityType, period, reportDate), bars),
				})
			}
		}
	}

	if w.opts.Workbook {
		data, err := encodeWorkbook(tables)
		if err != nil {
			return nil, &IOError{Op: "render", Path: WorkbookFile, Err: err}
		}

		artifacts = append(artifacts, artifact{name: WorkbookFile, data: data})
	}

	return artifacts, nil
}

// Write publishes the partition for date and returns the written paths.
// On failure every final path keeps its previous content, staged files and
// backups are removed, and directories created by this call are removed again.
func (w *Writer) Write(ctx context.Context, date time.Time, set *models.SalesSet) ([]string, error) {
	artifacts, err := w.render(date, set)
	if err != nil {
		return nil, err
	}

	dir := PartitionDir(w.opts.BasePath, date)
	created := missingDirs(dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	var pending []staged

	cleanup := func() {
		for _, s := range pending {
			_ = os.Remove(s.tmp)
		}

		removeBackups(pending)
		removeEmptyDirs(created)
	}

	for _, a := range artifacts {
		final := filepath.Join(dir, a.name)

		tmp, err := writeTemp(w.createTemp, dir, a.name, a.data, 0o644)
		if tmp != "" {
			pending = append(pending, staged{tmp: tmp, final: final})
		}

		if err != nil {
			cleanup()

			return nil, &IOError{Op: "write", Path: final, Err: err}
		}
	}

	if err := ctx.Err(); err != nil {
		cleanup()

		return nil, &IOError{Op: "publish", Path: dir, Err: err}
	}

	for i := range pending {
		if err := backupFinal(&pending[i]); err != nil {
			cleanup()

			return nil, &IOError{Op: "backup", Path: pending[i].final, Err: err}
		}
	}

	paths := make([]string, 0, len(pending))

	for i, s := range pending {
		if err := w.rename(s.tmp, s.final); err != nil {
			w.restore(pending[:i])
			pending = pending[i:]
			cleanup()

			return nil, &IOError{Op: "rename", Path: s.final, Err: err}
		}

		paths = append(paths, s.final)
		w.log.Debug("published artifact", "path", s.final)
	}

	removeBackups(pending)
	w.removeStale(dir, artifacts)
	syncDir(dir)

	return paths, nil
}

// restore puts back the previous content of already renamed artifacts.
// Artifacts that had no previous file are removed.
func (w *Writer) restore(renamed []staged) {
	for i := len(renamed) - 1; i >= 0; i-- {
		s := renamed[i]

		var err error
		if s.backup != "" {
			err = os.Rename(s.backup, s.final)
		} else {
			err = os.Remove(s.final)
		}

		if err != nil {
			w.log.Error("failed to restore artifact", "path", s.final, "error", err)
		}
	}
}

// backupFinal keeps the current file at s.final under a hidden name so a
// failed publish can restore it. A missing final needs no backup.
func backupFinal(s *staged) error {
	info, err := os.Lstat(s.final)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegular, info.Mode().Type())
	}

	backup := filepath.Join(filepath.Dir(s.final), "."+filepath.Base(s.final)+".bak")
	if err := os.Remove(backup); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	// Filesystems without hard links get a copy.
	if err := os.Link(s.final, backup); err != nil {
		if err := copyFile(s.final, backup, info.Mode().Perm()); err != nil {
			return err
		}
	}

	s.backup = backup

	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dst, data, perm); err != nil {
		_ = os.Remove(dst)

		return err
	}

	return nil
}

func removeBackups(pending []staged) {
	for _, s := range pending {
		if s.backup != "" {
			_ = os.Remove(s.backup)
		}
	}
}

// missingDirs lists dir and its ancestors that do not exist yet, deepest first.
func missingDirs(dir string) []string {
	var missing []string

	for p := filepath.Clean(dir); ; {
		if _, err := os.Stat(p); err == nil || !errors.Is(err, os.ErrNotExist) {
			return missing
		}

		missing = append(missing, p)

		parent := filepath.Dir(p)
		if parent == p {
			return missing
		}

		p = parent
	}
}

// removeEmptyDirs removes the given directories, deepest first, while they are empty.
func removeEmptyDirs(dirs []string) {
	for _, d := range dirs {
		if err := os.Remove(d); err != nil {
			return
		}
	}
}

// ReplaceFile atomically replaces path with data, keeping the permissions of
// the existing file.
func ReplaceFile(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := writeTemp(createOSTemp, filepath.Dir(path), filepath.Base(path), data, perm)
	if err != nil {
		if tmp != "" {
			_ = os.Remove(tmp)
		}

		return &IOError{Op: "write", Path: path, Err: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return &IOError{Op: "rename", Path: path, Err: err}
	}

	syncDir(filepath.Dir(path))

	return nil
}

// writeTemp writes data to a temp file in dir and returns its name.
// The name is returned even on failure so the caller can remove it.
func writeTemp(create func(dir, pattern string) (tempFile, error), dir, name string, data []byte, perm os.FileMode) (string, error) {
	f, err := create(dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}

	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()

		return tmp, err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()

		return tmp, err
	}

	if err := f.Close(); err != nil {
		return tmp, err
	}

	if err := os.Chmod(tmp, perm); err != nil {
		return tmp, err
	}

	return tmp, nil
}

// removeStale deletes optional artifacts left by an earlier run with other options.
func (w *Writer) removeStale(dir string, written []artifact) {
	keep := make(map[string]bool, len(written))
	for _, a := range written {
		keep[a.name] = true
	}

	optional := []string{WorkbookFile}

	for _, entityType := range chart.Ranked {
		for _, period := range models.Periods {
			optional = append(optional, chart.FileName(entityType, period))
		}
	}

	for _, name := range optional {
		if keep[name] {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.log.Warn("failed to remove stale artifact", "path", path, "error", err)
		}
	}
}

// syncDir flushes the directory entry so renames survive a crash.
// Platforms that cannot sync directories are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}

	_ = d.Sync()
	_ = d.Close()
}
