package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nikogura/resume-optimizer/pkg/history"
	"github.com/nikogura/resume-optimizer/pkg/renderer"
	"github.com/nikogura/resume-optimizer/pkg/request"
	"github.com/nikogura/resume-optimizer/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	err      error
	ids      []string
	requests []request.GenerationRequest
}

func (f *fakeSubmitter) SubmitWithID(id string, req request.GenerationRequest) (done <-chan struct{}, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return done, f.err
	}
	f.ids = append(f.ids, id)
	f.requests = append(f.requests, req)
	ch := make(chan struct{})
	close(ch)
	done = ch
	return done, err
}

type fakeConverter struct {
	ext string
	ok  bool
}

func (f *fakeConverter) ConvertFile(_ context.Context, markdown, outputPath string) (ok bool) {
	if f.ok {
		_ = renderer.WriteFile([]byte(markdown), outputPath)
	}
	return f.ok
}

func (f *fakeConverter) Extension() (ext string) {
	return f.ext
}

type fixture struct {
	server    *Server
	submitter *fakeSubmitter
	store     *history.SQLiteStore
	outputDir string
}

func newFixture(t *testing.T) (f *fixture) {
	t.Helper()
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f = &fixture{
		submitter: &fakeSubmitter{},
		store:     store,
		outputDir: t.TempDir(),
	}
	f.server = New(Deps{
		Submitter: f.submitter,
		PDF:       &fakeConverter{ext: ".pdf", ok: true},
		DOCX:      &fakeConverter{ext: ".docx", ok: false},
		History:   store,
		OutputDir: f.outputDir,
		Backend:   "mock",
	})
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) (status int, body []byte) {
	t.Helper()
	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

// multipartRequest builds a POST with the given files and form values.
func multipartRequest(t *testing.T, target string, files map[string]string, values map[string]string) (req *http.Request) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".md")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for field, value := range values {
		require.NoError(t, writer.WriteField(field, value))
	}
	require.NoError(t, writer.Close())

	req = httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

const optimizeJSON = `{"promptType":["resume","cover"],"jobTitle":"Eng","company_name":"Acme"}`

func TestUpload(t *testing.T) {
	f := newFixture(t)

	req := multipartRequest(t, "/api/upload",
		map[string]string{"resume": "My resume\r\n", "job": "The job"},
		map[string]string{"optimize": optimizeJSON})

	status, body := f.do(t, req)
	require.Equal(t, http.StatusAccepted, status, string(body))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.NotEmpty(t, resp["message"])
	require.Len(t, f.submitter.ids, 1)
	assert.Equal(t, f.submitter.ids[0], resp["request_id"])

	queued := f.submitter.requests[0]
	assert.Equal(t, "My resume\n", queued.Resume)
	assert.Equal(t, "The job", queued.JobDescription)
	assert.Equal(t, []string{"resume", "cover"}, queued.DocumentTypes)
	assert.Equal(t, request.DefaultModel, queued.Model)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		values map[string]string
	}{
		{
			name:   "missing resume",
			files:  map[string]string{"job": "J"},
			values: map[string]string{"optimize": optimizeJSON},
		},
		{
			name:   "missing job",
			files:  map[string]string{"resume": "R"},
			values: map[string]string{"optimize": optimizeJSON},
		},
		{
			name:   "missing optimize",
			files:  map[string]string{"resume": "R", "job": "J"},
			values: map[string]string{},
		},
		{
			name:   "schema violation",
			files:  map[string]string{"resume": "R", "job": "J"},
			values: map[string]string{"optimize": `{"promptType":[]}`},
		},
		{
			name:   "unknown type",
			files:  map[string]string{"resume": "R", "job": "J"},
			values: map[string]string{"optimize": `{"promptType":["poem"],"jobTitle":"Eng","company_name":"Acme"}`},
		},
		{
			name:   "blank resume",
			files:  map[string]string{"resume": "   ", "job": "J"},
			values: map[string]string{"optimize": optimizeJSON},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			status, body := f.do(t, multipartRequest(t, "/api/upload", tt.files, tt.values))
			assert.Equal(t, http.StatusBadRequest, status, string(body))
			assert.Empty(t, f.submitter.ids)
		})
	}
}

func TestOptimizerQueueFull(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "queue full", err: runner.ErrQueueFull},
		{name: "pool closed", err: runner.ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.submitter.err = tt.err

			payload := `{"promptType":["resume"],"jobTitle":"Eng","company_name":"Acme","resume_string":"R","jobDescription":"J"}`
			req := httptest.NewRequest(http.MethodPost, "/api/optimizer", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			status, _ := f.do(t, req)
			assert.Equal(t, http.StatusServiceUnavailable, status)
		})
	}
}

func TestOptimizerAccepted(t *testing.T) {
	f := newFixture(t)

	payload := `{"promptType":["skills"],"temperature":0.5,"jobTitle":"Eng","company_name":"Acme",` +
		`"resume_string":"R","jobDescription":"J","interviewerName":"Pat"}`
	req := httptest.NewRequest(http.MethodPost, "/api/optimizer", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	status, body := f.do(t, req)
	require.Equal(t, http.StatusAccepted, status, string(body))
	require.Len(t, f.submitter.requests, 1)
	assert.Equal(t, "Pat", f.submitter.requests[0].InterviewerName)
	assert.InDelta(t, 0.5, f.submitter.requests[0].Temperature, 1e-9)
}

func TestConvertRoutes(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, multipartRequest(t, "/api/markdownFile2PDF", map[string]string{"file": "# Doc"}, nil))
	require.Equal(t, http.StatusOK, status, string(body))
	assert.FileExists(t, filepath.Join(f.outputDir, "file.pdf"))

	// The DOCX fake always fails.
	status, _ = f.do(t, multipartRequest(t, "/api/markdownFile2DOCX", map[string]string{"file": "# Doc"}, nil))
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = f.do(t, multipartRequest(t, "/api/markdownFile2PDF", nil, nil))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFiles(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.outputDir, "resume-Acme-Eng.md"), []byte("# Resume"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(f.outputDir, "subdir"), 0750))

	// List
	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, status)

	var files []FileInfo
	require.NoError(t, json.Unmarshal(body, &files))
	require.Len(t, files, 1)
	assert.Equal(t, "resume-Acme-Eng.md", files[0].Name)
	assert.Equal(t, int64(8), files[0].Size)
	assert.Equal(t, "/api/files/resume-Acme-Eng.md", files[0].URL)

	// Download
	status, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/files/resume-Acme-Eng.md", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "# Resume", string(body))

	// Delete
	status, _ = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/files/resume-Acme-Eng.md", nil))
	require.Equal(t, http.StatusOK, status)
	assert.NoFileExists(t, filepath.Join(f.outputDir, "resume-Acme-Eng.md"))

	// Gone
	status, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/files/resume-Acme-Eng.md", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFilesRejectTraversal(t *testing.T) {
	f := newFixture(t)
	secret := filepath.Join(filepath.Dir(f.outputDir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0600))

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		for _, name := range []string{"..%2Fsecret.txt", "..%2F..%2Fsecret.txt", "a%5Cb"} {
			status, _ := f.do(t, httptest.NewRequest(method, "/api/files/"+name, nil))
			assert.Equal(t, http.StatusBadRequest, status, "%s %s", method, name)
		}
	}

	assert.FileExists(t, secret)
}

func TestFilesListMissingDir(t *testing.T) {
	f := newFixture(t)
	f.server.deps.OutputDir = filepath.Join(f.outputDir, "not-yet")

	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))
}

func TestHistoryRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := &history.Entry{RequestID: "r1", DocumentType: "resume", Company: "Acme", JobTitle: "Eng", Model: "m"}
	require.NoError(t, f.store.Record(ctx, entry))
	require.NoError(t, f.store.Record(ctx, &history.Entry{RequestID: "r1", DocumentType: "cover", Company: "Acme", JobTitle: "Eng", Model: "m"}))

	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history?type=resume", nil))
	require.Equal(t, http.StatusOK, status)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)

	status, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &entries))
	assert.Len(t, entries, 1)

	status, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/history/"+entry.ID, nil))
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/history/"+entry.ID, nil))
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/history/"+entry.ID, nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/history/missing", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHistoryDisabled(t *testing.T) {
	s := New(Deps{Submitter: &fakeSubmitter{}, OutputDir: t.TempDir()})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/history", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, status, string(body))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["output_dir_writable"])
	assert.Equal(t, "ok", resp["history"])
	assert.Equal(t, "mock", resp["llm_backend"])
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "resume.md", want: true},
		{name: "Acme Corp-Eng-2025.pdf", want: true},
		{name: "", want: false},
		{name: ".", want: false},
		{name: "..", want: false},
		{name: "../etc/passwd", want: false},
		{name: "a\\b", want: false},
		{name: "nul\x00byte", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeName(tt.name))
		})
	}
}
