package filetree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// RootKey labels the base name of an encoded directory.
const RootKey = "folder_root"

// ErrInvalidInput marks paths that are neither regular files nor directories.
var ErrInvalidInput = errors.New("invalid input path")

// InvalidInputError reports an input path that cannot be encoded.
type InvalidInputError struct {
	Path string
	Err  error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("filetree: %q is neither a file nor a directory: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("filetree: %q is neither a file nor a directory", e.Path)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

func (e *InvalidInputError) Unwrap() error { return e.Err }

// Kind distinguishes file entries from folder entries.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

// Item is one identifier/path pair inside an entry.
type Item struct {
	ID   string
	Path string
}

// Entry is a top-level element of the files structure. A file entry carries a
// single item holding its base name. A folder entry carries the directory base
// name in Root and one item per descendant, keyed by identifier, holding the
// path relative to the directory's parent.
type Entry struct {
	Kind  Kind
	Root  string
	Items []Item
}

// MarshalJSON emits the entry as an object whose keys keep identifier order,
// with folder_root first for folders.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key, value string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	if e.Kind == KindFolder {
		if err := write(RootKey, e.Root); err != nil {
			return nil, err
		}
	}
	for _, item := range e.Items {
		if err := write(item.ID, item.Path); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FileRef maps a file identifier to the absolute path it denotes.
type FileRef struct {
	ID   string
	Path string
}

// FileMap lists file identifiers in assignment order.
type FileMap []FileRef

// Lookup returns the path registered for id.
func (m FileMap) Lookup(id string) (string, bool) {
	for _, ref := range m {
		if ref.ID == id {
			return ref.Path, true
		}
	}
	return "", false
}

// IDs returns the identifiers in order.
func (m FileMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for _, ref := range m {
		ids = append(ids, ref.ID)
	}
	return ids
}

// FileID formats the identifier for sequence value n.
func FileID(n int) string { return "file_" + strconv.Itoa(n) }

// FolderID formats the folder identifier for sequence value n.
func FolderID(n int) string { return "folder_" + strconv.Itoa(n) }

// encoder holds the sequence counter for a single Encode call.
type encoder struct {
	seq     int
	entries []Entry
	files   FileMap
}

// Encode walks paths in order and returns the files structure and file map.
// Directory descendants are visited in lexical order.
func Encode(paths []string) ([]Entry, FileMap, error) {
	enc := &encoder{seq: 1, entries: []Entry{}, files: FileMap{}}
	for _, path := range paths {
		if err := enc.add(path); err != nil {
			return nil, nil, err
		}
	}
	return enc.entries, enc.files, nil
}

func (e *encoder) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &InvalidInputError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return &InvalidInputError{Path: path, Err: err}
	}
	switch {
	case info.IsDir():
		return e.addFolder(abs)
	case info.Mode().IsRegular():
		e.addFile(abs)
		return nil
	default:
		return &InvalidInputError{Path: path}
	}
}

func (e *encoder) addFile(abs string) {
	id := FileID(e.seq)
	e.entries = append(e.entries, Entry{
		Kind:  KindFile,
		Items: []Item{{ID: id, Path: filepath.Base(abs)}},
	})
	e.files = append(e.files, FileRef{ID: id, Path: abs})
	e.seq++
}

func (e *encoder) addFolder(dir string) error {
	parent := filepath.Dir(dir)
	entry := Entry{Kind: KindFolder, Root: filepath.Base(dir)}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		isDir := d.IsDir()
		if d.Type()&fs.ModeSymlink != 0 {
			// Linked directories are listed but not descended into.
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				isDir = true
			}
		}

		if isDir {
			entry.Items = append(entry.Items, Item{ID: FolderID(e.seq), Path: rel})
		} else {
			id := FileID(e.seq)
			entry.Items = append(entry.Items, Item{ID: id, Path: rel})
			e.files = append(e.files, FileRef{ID: id, Path: path})
		}
		e.seq++
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}

	e.entries = append(e.entries, entry)
	return nil
}
