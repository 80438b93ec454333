package ecosystem

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// errStopWalk ends a walk early once a match is found.
var errStopWalk = errors.New("stop walk")

// skippedDirs are never descended into when looking for sources.
var skippedDirs = map[string]struct{}{
	"node_modules": {},
	"target":       {},
	"build":        {},
	"vendor":       {},
	"bin":          {},
	"obj":          {},
}

func exists(fsys afero.Fs, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}

func isDir(fsys afero.Fs, path string) bool {
	ok, err := afero.IsDir(fsys, path)
	return err == nil && ok
}

func nonEmptyDir(fsys afero.Fs, path string) bool {
	if !isDir(fsys, path) {
		return false
	}
	empty, err := afero.IsEmpty(fsys, path)
	return err == nil && !empty
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := skippedDirs[name]
	return ok
}

// walkFiles visits every regular file below root, skipping hidden and
// build output directories. Returning errStopWalk from fn stops the walk
// without error.
func walkFiles(fsys afero.Fs, root string, fn func(path string, info os.FileInfo) error) error {
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if path != root && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(path, info)
	})
	if errors.Is(err, errStopWalk) {
		return nil
	}
	return err
}

// anyFile reports whether some file below root satisfies match.
func anyFile(fsys afero.Fs, root string, match func(path string) (bool, error)) (bool, error) {
	found := false
	err := walkFiles(fsys, root, func(path string, _ os.FileInfo) error {
		ok, err := match(path)
		if err != nil {
			return err
		}
		if ok {
			found = true
			return errStopWalk
		}
		return nil
	})
	return found, err
}

// findFiles returns every file below root satisfying match, sorted.
func findFiles(fsys afero.Fs, root string, match func(path string) bool) ([]string, error) {
	var out []string
	err := walkFiles(fsys, root, func(path string, _ os.FileInfo) error {
		if match(path) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// listFiles returns the regular files directly inside dir, sorted.
func listFiles(fsys afero.Fs, dir string, match func(name string) bool) ([]string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !match(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func fileContains(fsys afero.Fs, path string, needle []byte) (bool, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return false, err
	}
	return bytes.Contains(data, needle), nil
}

func hasSuffix(suffixes ...string) func(string) bool {
	return func(path string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(path, s) {
				return true
			}
		}
		return false
	}
}
