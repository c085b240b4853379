package nmr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SampleDirectory is a directory whose children are dataset directories.
type SampleDirectory struct {
	Path     string
	Datasets []string
}

// Name is the sample name used when creating it remotely.
func (s SampleDirectory) Name() string {
	return filepath.Base(s.Path)
}

// IsDatasetDir reports whether dir contains a pdata entry.
func IsDatasetDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "pdata"))
	return err == nil
}

// CompanionFiles lists every *.dx file under dir/pdata/1, at any depth,
// sorted. A dataset without processed data has no companions.
func CompanionFiles(dir string) ([]string, error) {
	root := filepath.Join(dir, "pdata", "1")
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ".dx") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find companion files in %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Discover scans the immediate, non-hidden children of baseDir for dataset
// directories. All of them belong to one sample directory, baseDir itself. An empty result
// means nothing under baseDir looks like NMR data.
func Discover(baseDir string) ([]SampleDirectory, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", baseDir, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}

	var datasets []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		child := filepath.Join(abs, entry.Name())
		if IsDatasetDir(child) {
			datasets = append(datasets, child)
		}
	}
	if len(datasets) == 0 {
		return nil, nil
	}
	sort.Strings(datasets)
	return []SampleDirectory{{Path: abs, Datasets: datasets}}, nil
}
