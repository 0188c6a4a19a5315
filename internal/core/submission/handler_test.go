package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu           sync.Mutex
	subs         map[string]Submission
	listedStatus string
	listedLimit  int
	failGet      error
}

func newMemRepo() *memRepo { return &memRepo{subs: map[string]Submission{}} }

func (r *memRepo) Create(_ context.Context, sub Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.ID] = sub
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (Submission, error) {
	if r.failGet != nil {
		return Submission{}, r.failGet
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

func (r *memRepo) List(_ context.Context, status string, limit int) ([]Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listedStatus, r.listedLimit = status, limit
	out := []Submission{}
	for _, s := range r.subs {
		if status == "" || string(s.Status) == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func newApp(repo Repository) *fiber.App { return newAppIn(repo, "") }

func newAppIn(repo Repository, dataDir string) *fiber.App {
	h := NewHandler(repo, dataDir)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	app := fiber.New()
	app.Post("/v1/submissions", h.HandleCreate)
	app.Get("/v1/submissions", h.HandleList)
	app.Get("/v1/submissions/:id", h.HandleGet)
	return app
}

type createResponse struct {
	Success    bool       `json:"success"`
	Error      string     `json:"error"`
	Submission Submission `json:"submission"`
}

func post(t *testing.T, app *fiber.App, body string) (int, createResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/submissions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out createResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandleCreate_CommaStrings(t *testing.T) {
	repo := newMemRepo()
	app := newApp(repo)

	code, out := post(t, app, `{"email":" ana@example.com ","companies":"Acme, , Globex","roles":["Data Engineer"],"cities":"London","visaRequired":true}`)

	require.Equal(t, fiber.StatusCreated, code)
	assert.True(t, out.Success)
	sub := out.Submission
	assert.Equal(t, "ana@example.com", sub.Email)
	assert.Equal(t, []string{"Acme", "Globex"}, sub.Companies)
	assert.Equal(t, []string{"London"}, sub.Cities)
	assert.Equal(t, FrequencyOnce, sub.Frequency)
	assert.Equal(t, StatusPending, sub.Status)
	assert.True(t, sub.VisaRequired)
	assert.Contains(t, repo.subs, sub.ID)
}

func TestHandleCreate_Validation(t *testing.T) {
	app := newApp(newMemRepo())

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"bad email", `{"email":"nope","companies":"Acme","roles":"Dev"}`, "email"},
		{"no companies", `{"email":"a@b.co","companies":" , ","roles":"Dev"}`, "companies"},
		{"no roles", `{"email":"a@b.co","companies":"Acme"}`, "roles"},
		{"bad frequency", `{"email":"a@b.co","companies":"Acme","roles":"Dev","frequency":"hourly"}`, "frequency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out := post(t, app, tc.body)
			assert.Equal(t, fiber.StatusBadRequest, code)
			assert.False(t, out.Success)
			assert.True(t, strings.HasPrefix(out.Error, tc.field), out.Error)
		})
	}

	code, _ := post(t, app, `{"email":`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

// postForm sends fields plus an optional template file as multipart.
func postForm(t *testing.T, app *fiber.App, fields map[string]string, filename string, content []byte) (int, createResponse) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("template", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/v1/submissions", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out createResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func formFields() map[string]string {
	return map[string]string{
		"email":     "ana@example.com",
		"companies": "Acme, Globex",
		"roles":     "Data Engineer",
		"cities":    "London",
		"visa":      "yes",
		"frequency": "weekly",
	}
}

func TestHandleCreate_MultipartStoresTemplate(t *testing.T) {
	repo := newMemRepo()
	dir := t.TempDir()
	app := newAppIn(repo, dir)
	cv := []byte("Ana Lima\nData engineer, Spark and Airflow.")

	code, out := postForm(t, app, formFields(), "My CV.TXT", cv)

	require.Equal(t, fiber.StatusCreated, code, out.Error)
	sub := out.Submission
	assert.Equal(t, "uploads/"+sub.ID+".txt", sub.TemplatePath)
	assert.Equal(t, []string{"Acme", "Globex"}, sub.Companies)
	assert.True(t, sub.VisaRequired)
	assert.Equal(t, FrequencyWeekly, sub.Frequency)

	saved, err := os.ReadFile(filepath.Join(dir, "uploads", sub.ID+".txt"))
	require.NoError(t, err)
	assert.Equal(t, cv, saved)
	assert.Equal(t, sub.TemplatePath, repo.subs[sub.ID].TemplatePath)
}

func TestHandleCreate_MultipartWithoutFile(t *testing.T) {
	app := newAppIn(newMemRepo(), t.TempDir())

	code, out := postForm(t, app, formFields(), "", nil)

	require.Equal(t, fiber.StatusCreated, code, out.Error)
	assert.Empty(t, out.Submission.TemplatePath)
}

func TestHandleCreate_RejectsBadTemplates(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		size     int
		want     string
	}{
		{"too large", "cv.pdf", MaxTemplateBytes + 1, "too large"},
		{"bad extension", "cv.exe", 64, ".doc, .docx, .pdf or .txt"},
		{"no extension", "cv", 64, ".doc, .docx, .pdf or .txt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemRepo()
			dir := t.TempDir()
			app := newAppIn(repo, dir)

			code, out := postForm(t, app, formFields(), tc.filename, bytes.Repeat([]byte("a"), tc.size))

			assert.Equal(t, fiber.StatusBadRequest, code)
			assert.Contains(t, out.Error, tc.want)
			assert.Empty(t, repo.subs)
			assert.NoDirExists(t, filepath.Join(dir, "uploads"))
		})
	}
}

func TestHandleCreate_MultipartValidation(t *testing.T) {
	repo := newMemRepo()
	dir := t.TempDir()
	app := newAppIn(repo, dir)
	fields := formFields()
	delete(fields, "roles")

	code, out := postForm(t, app, fields, "cv.txt", []byte("cv"))

	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.True(t, strings.HasPrefix(out.Error, "roles"), out.Error)
	assert.NoDirExists(t, filepath.Join(dir, "uploads"))
}

func TestHandleGet(t *testing.T) {
	repo := newMemRepo()
	app := newApp(repo)
	_, created := post(t, app, `{"email":"a@b.co","companies":"Acme","roles":"Dev"}`)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/submissions/"+created.Submission.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/submissions/7d1c6d0e-1111-4f4e-9a53-000000000000", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/submissions/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	repo.failGet = errors.New("db down")
	resp, err = app.Test(httptest.NewRequest("GET", "/v1/submissions/"+created.Submission.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestHandleList(t *testing.T) {
	repo := newMemRepo()
	app := newApp(repo)
	post(t, app, `{"email":"a@b.co","companies":"Acme","roles":"Dev"}`)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/submissions?status=pending&limit=500", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Submissions []Submission `json:"submissions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Submissions, 1)
	assert.Equal(t, "pending", repo.listedStatus)
	assert.Equal(t, maxListLimit, repo.listedLimit)

	_, err = app.Test(httptest.NewRequest("GET", "/v1/submissions", nil))
	require.NoError(t, err)
	assert.Equal(t, defaultListLimit, repo.listedLimit)
}

func TestCommaListCapsEntries(t *testing.T) {
	var l CommaList
	require.NoError(t, json.Unmarshal([]byte(`"`+strings.TrimSuffix(strings.Repeat("Acme,", 300), ",")+`"`), &l))
	assert.Len(t, l, 200)

	assert.Error(t, json.Unmarshal([]byte(`42`), &l))
}
