package uploader_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"nmrupload/internal/acdata"
	"nmrupload/internal/uploader"
)

func TestRunAgainstServer(t *testing.T) {
	root := t.TempDir()
	okDir := filepath.Join(root, "s1")
	badDir := filepath.Join(root, "s2")
	okDS := makeDataset(t, okDir, "10", "Glucose\nSample A", "spectrum.dx")
	badDS := makeDataset(t, badDir, "10", "Other")

	var (
		mu          sync.Mutex
		sampleNames []string
		datasets    []map[string]any
		fileParts   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(acdata.SessionCookieName); err != nil || c.Value != "tok" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/api/samples":
			var body struct {
				Sample struct {
					Name string `json:"name"`
				} `json:"sample"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode sample: %v", err)
			}
			sampleNames = append(sampleNames, body.Sample.Name)
			if body.Sample.Name == "s2" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":41,"name":"s1"}`)
		case "/api/datasets":
			_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				t.Errorf("content type: %v", err)
			}
			reader := multipart.NewReader(r.Body, params["boundary"])
			for {
				part, err := reader.NextPart()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Errorf("next part: %v", err)
					break
				}
				data, _ := io.ReadAll(part)
				if part.FormName() == "dataset" {
					var doc map[string]any
					dec := json.NewDecoder(bytes.NewReader(data))
					dec.UseNumber()
					if err := dec.Decode(&doc); err != nil {
						t.Errorf("decode dataset: %v", err)
					}
					datasets = append(datasets, doc)
					continue
				}
				fileParts = append(fileParts, part.FormName()+"="+part.FileName())
			}
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":99}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := acdata.New(srv.URL)
	if err != nil {
		t.Fatalf("acdata.New: %v", err)
	}
	var progress, errOut bytes.Buffer
	plan := uploader.Plan{
		Session:      "tok",
		ProjectID:    "5",
		InstrumentID: "3",
		Samples: []uploader.SampleDirectory{
			{Path: okDir, Datasets: []string{okDS}},
			{Path: badDir, Datasets: []string{badDS}},
		},
	}
	report := uploader.New(client, uploader.WithProgress(&progress), uploader.WithErrorOutput(&errOut)).Run(context.Background(), plan)

	if strings.Join(sampleNames, ",") != "s1,s2" {
		t.Fatalf("expected both samples attempted, got %v", sampleNames)
	}
	if len(datasets) != 1 {
		t.Fatalf("expected one dataset upload, got %d", len(datasets))
	}
	doc := datasets[0]
	if doc["name"] != "Glucose Sample A - 10" {
		t.Fatalf("unexpected dataset name %v", doc["name"])
	}
	if doc["sample_id"] != json.Number("41") {
		t.Fatalf("expected numeric sample id 41, got %#v", doc["sample_id"])
	}
	wantParts := []string{"file_1=spectrum.dx", "file_2=fid", "file_5=spectrum.dx", "file_6=title"}
	if strings.Join(fileParts, ",") != strings.Join(wantParts, ",") {
		t.Fatalf("file parts = %v want %v", fileParts, wantParts)
	}

	failed := report.Failed()
	if len(failed) != 1 || failed[0].Dir != badDir {
		t.Fatalf("expected s2 to fail, got %+v", report.Samples)
	}
	if !strings.Contains(errOut.String(), "Problem importing "+badDir) {
		t.Fatalf("missing failure notice: %q", errOut.String())
	}
	if !strings.Contains(progress.String(), "Creating dataset name: Glucose Sample A - 10 (under sample: s1)") {
		t.Fatalf("missing progress line: %q", progress.String())
	}
}
