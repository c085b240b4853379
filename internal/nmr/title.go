package nmr

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// UntitledName replaces a missing or blank title.
const UntitledName = "Untitled"

var (
	lineBreaks      = regexp.MustCompile(`[\r\n]+`)
	trailingSegment = regexp.MustCompile(`\w+$`)
)

// TitlePath returns the location of the processed-data title file.
func TitlePath(dir string) string {
	return filepath.Join(dir, "pdata", "1", "title")
}

// ExtractTitle derives the dataset name for dir from its title file. Line
// breaks are folded into single spaces and the trailing word segment of dir
// is appended, so "Glucose\r\nSample A" under .../10 becomes
// "Glucose Sample A - 10". A missing title file yields "Untitled - 10".
func ExtractTitle(dir string) (string, error) {
	title := ""
	data, err := os.ReadFile(TitlePath(dir))
	switch {
	case err == nil:
		title = normalizeTitle(decodeTitle(data))
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", fmt.Errorf("read title: %w", err)
	}
	if title == "" {
		title = UntitledName
	}
	return title + " - " + Segment(dir), nil
}

// Segment returns the trailing run of word characters of dir, which for
// TopSpin experiment directories is the experiment number.
func Segment(dir string) string {
	cleaned := strings.TrimRight(filepath.ToSlash(dir), "/")
	return trailingSegment.FindString(cleaned)
}

// decodeTitle treats titles that are not valid UTF-8 as Latin-1, which is
// what older spectrometer software writes.
func decodeTitle(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("?")))
	}
	return string(decoded)
}

func normalizeTitle(raw string) string {
	return strings.TrimSpace(lineBreaks.ReplaceAllString(raw, " "))
}
