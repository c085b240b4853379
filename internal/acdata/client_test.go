package acdata_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nmrupload/internal/acdata"
	"nmrupload/internal/filetree"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *acdata.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := acdata.New(server.URL, acdata.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("acdata.New: %v", err)
	}
	return client
}

func TestLoginReturnsSessionOnCreated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/sign_in.json" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if r.Header.Get("Cookie") != "" {
			t.Fatal("login must not send a session cookie")
		}
		var payload struct {
			User struct {
				Login    string `json:"login"`
				Password string `json:"password"`
			} `json:"user"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode login body: %v", err)
		}
		if payload.User.Login != "z1234567" || payload.User.Password != "secret" {
			t.Fatalf("unexpected credentials: %+v", payload.User)
		}
		w.Header().Add("Set-Cookie", "remember_user_token=xyz; path=/")
		w.Header().Add("Set-Cookie", "_acdata_session=abc123; path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "locale=en; path=/")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	})

	session, err := client.Login(context.Background(), "z1234567", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session != "abc123" {
		t.Fatalf("unexpected session %q", session)
	}
	if !session.Valid() {
		t.Fatal("expected valid session")
	}
}

func TestLoginRejectsNonCreatedStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusUnauthorized, http.StatusInternalServerError} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "_acdata_session=abc123; path=/")
			w.WriteHeader(status)
		})
		session, err := client.Login(context.Background(), "user", "bad")
		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		var authErr *acdata.AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("status %d: expected AuthenticationError, got %T", status, err)
		}
		if authErr.Status != status {
			t.Fatalf("unexpected status %d", authErr.Status)
		}
		if authErr.Message != http.StatusText(status) {
			t.Fatalf("unexpected message %q", authErr.Message)
		}
		if session != "" {
			t.Fatalf("status %d: no session expected, got %q", status, session)
		}
	}
}

func TestLoginWithoutSessionCookie(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "other=1; path=/")
		w.WriteHeader(http.StatusCreated)
	})
	session, err := client.Login(context.Background(), "user", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.Valid() {
		t.Fatalf("expected empty session, got %q", session)
	}
}

func TestExtractSession(t *testing.T) {
	header := http.Header{}
	header.Add("Set-Cookie", "a=1; path=/")
	header.Add("Set-Cookie", "_acdata_session=abc123; path=/; HttpOnly")
	header.Add("Set-Cookie", "b=2")
	session, ok := acdata.ExtractSession(header)
	if !ok || session != "abc123" {
		t.Fatalf("got %q ok=%v", session, ok)
	}

	none := http.Header{}
	none.Add("Set-Cookie", "_acdata_session_old=zzz")
	none.Add("Set-Cookie", "a=1")
	if session, ok := acdata.ExtractSession(none); ok || session != "" {
		t.Fatalf("expected no session, got %q ok=%v", session, ok)
	}
}

func TestListAttachesCookieAndParsesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/projects" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if cookie := r.Header.Get("Cookie"); cookie != "_acdata_session=tok" {
			t.Fatalf("unexpected cookie %q", cookie)
		}
		_, _ = w.Write([]byte(`{"owner":[{"id":3,"name":"Glycans"}],"collaborator":[]}`))
	})

	result, err := client.List(context.Background(), "tok", acdata.ResourceProjects)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	obj, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", result)
	}
	owner := obj["owner"].([]any)
	first := owner[0].(map[string]any)
	if first["id"] != json.Number("3") {
		t.Fatalf("expected json.Number id, got %#v", first["id"])
	}
}

func TestListWithoutSessionOmitsCookie(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Cookie"]; ok {
			t.Fatal("expected no Cookie header")
		}
		_, _ = w.Write([]byte(`[]`))
	})
	if _, err := client.List(context.Background(), "", acdata.ResourceSamples); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
}

func TestListEmptyBodyIsAbsent(t *testing.T) {
	for _, body := range []string{"", "   ", "\r\n\t "} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		result, err := client.List(context.Background(), "tok", acdata.ResourceInstruments)
		if err != nil {
			t.Fatalf("body %q: unexpected error %v", body, err)
		}
		if result != nil {
			t.Fatalf("body %q: expected nil result, got %#v", body, result)
		}
	}
}

func TestListMalformedJSON(t *testing.T) {
	for _, body := range []string{"{not json", `{"a":1} trailing`} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := client.List(context.Background(), "tok", acdata.ResourceSamples)
		if err == nil {
			t.Fatalf("body %q: expected parse error", body)
		}
		var apiErr *acdata.APIError
		if errors.As(err, &apiErr) {
			t.Fatalf("body %q: parse failure must not be an APIError", body)
		}
	}
}

func TestListNonSuccessReturnsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"You need to sign in"}`))
	})
	_, err := client.List(context.Background(), "expired", acdata.ResourceInstruments)
	var apiErr *acdata.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Endpoint != "/api/instruments" {
		t.Fatalf("unexpected error fields: %+v", apiErr)
	}
	if !strings.Contains(apiErr.Body, "sign in") {
		t.Fatalf("expected body detail, got %q", apiErr.Body)
	}
	if !acdata.IsUnauthorized(err) {
		t.Fatal("expected IsUnauthorized to report true")
	}
}

func TestListUnknownResource(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	if _, err := client.List(context.Background(), "tok", acdata.Resource("users")); err == nil {
		t.Fatal("expected error for unknown resource")
	}
}

func TestCreateSampleSendsParams(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/samples" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if cookie := r.Header.Get("Cookie"); cookie != "_acdata_session=tok" {
			t.Fatalf("unexpected cookie %q", cookie)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"name":"glucose"}`))
	})

	rec, err := client.CreateSample(context.Background(), "tok", acdata.SampleParams{ProjectID: "7", Name: "glucose"})
	if err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	id, ok := rec.ID()
	if !ok || id != "42" {
		t.Fatalf("unexpected id %q ok=%v", id, ok)
	}
	if captured["project_id"] != "7" {
		t.Fatalf("unexpected project id %#v", captured["project_id"])
	}
	if v, present := captured["experiment_id"]; !present || v != nil {
		t.Fatalf("expected explicit null experiment_id, got %#v (present=%v)", v, present)
	}
	sample := captured["sample"].(map[string]any)
	if sample["name"] != "glucose" {
		t.Fatalf("unexpected sample name %#v", sample["name"])
	}
}

func TestCreateSampleWithExperiment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			ExperimentID *string `json:"experiment_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.ExperimentID == nil || *payload.ExperimentID != "5" {
			t.Fatalf("expected experiment 5, got %v", payload.ExperimentID)
		}
		w.WriteHeader(http.StatusCreated)
	})
	rec, err := client.CreateSample(context.Background(), "tok", acdata.SampleParams{ProjectID: "7", ExperimentID: "5", Name: "s"})
	if err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for empty body, got %#v", rec)
	}
}

func TestCreateSampleRequiresCreated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":1}`))
	})
	_, err := client.CreateSample(context.Background(), "tok", acdata.SampleParams{ProjectID: "1", Name: "x"})
	var apiErr *acdata.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusOK || apiErr.Endpoint != "/api/samples" {
		t.Fatalf("expected APIError for 200, got %v", err)
	}
}

func TestCreateDatasetUploadsMultipart(t *testing.T) {
	base := t.TempDir()
	datasetDir := filepath.Join(base, "10")
	if err := os.MkdirAll(filepath.Join(datasetDir, "pdata", "1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	fid := []byte{0x01, 0x02, 0xfe, 0xff}
	if err := os.WriteFile(filepath.Join(datasetDir, "fid"), fid, 0o644); err != nil {
		t.Fatalf("write fid: %v", err)
	}
	companion := filepath.Join(datasetDir, "pdata", "1", "spectrum.dx")
	if err := os.WriteFile(companion, []byte("##JCAMP-DX=5.0"), 0o644); err != nil {
		t.Fatalf("write dx: %v", err)
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/datasets" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Fatalf("parse content type: %v", err)
		}
		if mediaType != "multipart/form-data" || params["boundary"] != acdata.Boundary {
			t.Fatalf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		reader := multipart.NewReader(r.Body, params["boundary"])

		part, err := reader.NextPart()
		if err != nil || part.FormName() != "dataset" {
			t.Fatalf("expected dataset part, got %v (%v)", part, err)
		}
		var doc struct {
			Name         string            `json:"name"`
			SampleID     json.Number       `json:"sample_id"`
			InstrumentID string            `json:"instrument_id"`
			Files        []json.RawMessage `json:"files"`
			Metadata     map[string]any    `json:"metadata"`
		}
		dec := json.NewDecoder(part)
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			t.Fatalf("decode dataset json: %v", err)
		}
		if doc.Name != "Glucose - 10" || doc.SampleID != "42" || doc.InstrumentID != "3" {
			t.Fatalf("unexpected dataset document: %+v", doc)
		}
		if len(doc.Files) != 2 {
			t.Fatalf("expected two top-level entries, got %d", len(doc.Files))
		}
		if string(doc.Files[0]) != `{"file_1":"spectrum.dx"}` {
			t.Fatalf("unexpected first entry %s", doc.Files[0])
		}
		wantFolder := `{"folder_root":"10","file_2":"10/fid","folder_3":"10/pdata","folder_4":"10/pdata/1","file_5":"10/pdata/1/spectrum.dx"}`
		if string(doc.Files[1]) != wantFolder {
			t.Fatalf("unexpected folder entry\n got %s\nwant %s", doc.Files[1], wantFolder)
		}
		if doc.Metadata == nil {
			t.Fatal("expected metadata object")
		}

		wantParts := []struct {
			name string
			data []byte
		}{
			{"file_1", []byte("##JCAMP-DX=5.0")},
			{"file_2", fid},
			{"file_5", []byte("##JCAMP-DX=5.0")},
		}
		for _, want := range wantParts {
			part, err := reader.NextPart()
			if err != nil {
				t.Fatalf("part %s: %v", want.name, err)
			}
			if part.FormName() != want.name {
				t.Fatalf("expected part %s, got %s", want.name, part.FormName())
			}
			data, _ := io.ReadAll(part)
			if !bytes.Equal(data, want.data) {
				t.Fatalf("part %s: content mismatch", want.name)
			}
		}
		if _, err := reader.NextPart(); !errors.Is(err, io.EOF) {
			t.Fatalf("expected end of body, got %v", err)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":99,"name":"Glucose - 10"}`))
	})

	rec, err := client.CreateDataset(context.Background(), "tok", acdata.DatasetParams{
		Name:         "Glucose - 10",
		InstrumentID: "3",
		SampleID:     "42",
		Files:        []string{companion, datasetDir},
	})
	if err != nil {
		t.Fatalf("CreateDataset returned error: %v", err)
	}
	if id, _ := rec.ID(); id != "99" {
		t.Fatalf("unexpected dataset id %q", id)
	}
}

func TestCreateDatasetInvalidInputSkipsRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.CreateDataset(context.Background(), "tok", acdata.DatasetParams{
		Name:  "x",
		Files: []string{filepath.Join(t.TempDir(), "missing")},
	})
	if !errors.Is(err, filetree.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateDatasetRequiresCreated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":["name can't be blank"]}`))
	})
	_, err := client.CreateDataset(context.Background(), "tok", acdata.DatasetParams{Name: ""})
	var apiErr *acdata.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity || apiErr.Endpoint != "/api/datasets" {
		t.Fatalf("expected APIError 422, got %v", err)
	}
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.org", "https://", "::bad"} {
		if _, err := acdata.New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
	client, err := acdata.New("")
	if err != nil {
		t.Fatalf("New with default url: %v", err)
	}
	if client.BaseURL() != acdata.DefaultBaseURL {
		t.Fatalf("unexpected base url %q", client.BaseURL())
	}
	client, err = acdata.New("https://example.org/acdata/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.BaseURL() != "https://example.org/acdata" {
		t.Fatalf("expected trailing slash trimmed, got %q", client.BaseURL())
	}
}

func TestIdentifierMarshal(t *testing.T) {
	cases := map[acdata.Identifier]string{
		"42":    `42`,
		"abc":   `"abc"`,
		"4.5":   `"4.5"`,
		"":      `""`,
		"-7":    `-7`,
		"01234": `"01234"`,
	}
	for id, want := range cases {
		data, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal %q: %v", id, err)
		}
		if string(data) != want {
			t.Fatalf("marshal %q: got %s want %s", id, data, want)
		}
	}
}
