// Package formbody renders the multipart/form-data body for dataset creation.
//
// The layout is fixed: one JSON "dataset" part followed by one binary part per
// file map entry, with part headers written in a stable order. The standard
// library multipart writer sorts part headers, so the framing is written by
// hand here and checked against mime/multipart.Reader in tests.
package formbody

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nmrupload/internal/filetree"
)

const crlf = "\r\n"

// DatasetField is the form field name of the metadata part.
const DatasetField = "dataset"

var (
	// ErrBoundaryCollision is returned when the boundary is empty or appears
	// inside a part payload, which would corrupt the framing.
	ErrBoundaryCollision = errors.New("multipart boundary collision")
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// ContentType returns the request Content-Type for a body built with boundary.
func ContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

// Build renders the complete body into memory.
func Build(metadataJSON []byte, files filetree.FileMap, boundary string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, metadataJSON, files, boundary); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the body to w. Each file is opened, read in full and closed
// before its part is written.
func Write(w io.Writer, metadataJSON []byte, files filetree.FileMap, boundary string) error {
	if strings.TrimSpace(boundary) == "" {
		return fmt.Errorf("%w: empty boundary", ErrBoundaryCollision)
	}
	if collides(metadataJSON, boundary) {
		return fmt.Errorf("%w: boundary found in dataset metadata", ErrBoundaryCollision)
	}

	bw := bufio.NewWriter(w)
	writeHeader(bw, boundary,
		fmt.Sprintf(`Content-Disposition: form-data; name="%s"`, DatasetField),
		"Content-Type: application/json; charset=utf-8",
		"Content-Transfer-Encoding: 8bit",
	)
	bw.Write(metadataJSON)
	bw.WriteString(crlf)

	for _, ref := range files {
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			return fmt.Errorf("read %s (%s): %w", ref.ID, ref.Path, err)
		}
		if collides(data, boundary) {
			return fmt.Errorf("%w: boundary found in %s", ErrBoundaryCollision, ref.Path)
		}
		writeHeader(bw, boundary,
			fmt.Sprintf(`Content-Disposition: form-data; name="%s"; filename="%s"`,
				quoteEscaper.Replace(ref.ID), quoteEscaper.Replace(filepath.Base(ref.Path))),
			"Content-Type: application/octet-stream; charset=ISO-8859-1",
			"Content-Transfer-Encoding: binary",
		)
		bw.Write(data)
		bw.WriteString(crlf)
	}

	bw.WriteString("--" + boundary + "--" + crlf)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write multipart body: %w", err)
	}
	return nil
}

// collides reports whether payload would end its part early. Every payload
// follows a header's blank line, so a leading delimiter counts as well.
func collides(payload []byte, boundary string) bool {
	dash := []byte("--" + boundary)
	return bytes.HasPrefix(payload, dash) || bytes.Contains(payload, append([]byte(crlf), dash...))
}

func writeHeader(bw *bufio.Writer, boundary string, lines ...string) {
	bw.WriteString("--" + boundary + crlf)
	for _, line := range lines {
		bw.WriteString(line)
		bw.WriteString(crlf)
	}
	bw.WriteString(crlf)
}
