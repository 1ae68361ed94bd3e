package autolabel

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// subdirsOf returns the names of all directories found directly in dirPath, sorted
// lexicographically. Symlinks are followed to decide whether an entry is a directory.
func subdirsOf(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read directory %q", dirPath)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dirPath, e.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		if isDir {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// filesByExtsInDir returns all regular files (or symlinks) found directly in dirPath whose
// lower-cased extension is one of exts, sorted by name. The second return value is the number
// of files that were passed over because of their extension.
func filesByExtsInDir(dirPath string, exts []string) (files []string, skipped int, err error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "cannot read directory %q", dirPath)
	}

	files = make([]string, 0, len(entries))
	for _, e := range entries {
		// Must be a regular file or a symlink.
		if !e.Type().IsRegular() && e.Type()&os.ModeSymlink == 0 {
			continue
		}
		if !hasExt(e.Name(), exts) {
			skipped++
			continue
		}
		files = append(files, filepath.Join(dirPath, e.Name()))
	}
	sort.Strings(files)

	return files, skipped, nil
}

// hasExt reports whether the lower-cased extension of name is in exts. Names without a stem never
// match.
func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	// A name like ".jpg" has no stem and is a hidden file, not an image.
	if ext == "" || len(ext) == len(name) {
		return false
	}
	for _, v := range exts {
		if strings.ToLower(v) == ext {
			return true
		}
	}
	return false
}

// splitPath splits the given file path into the dir name, the base name without extension and the
// extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", errors.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
