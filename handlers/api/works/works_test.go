package works

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"portfolio-server/core"
	"portfolio-server/handlers/auth"
	authMiddleware "portfolio-server/middleware"
	"portfolio-server/stores/memory"

	"github.com/go-chi/chi/v5"
)

// fakeFileStore records stored blobs in memory.
type fakeFileStore struct {
	saved map[string][]byte
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{saved: make(map[string][]byte)}
}

func (f *fakeFileStore) Save(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.saved[name] = data
	return nil
}

func (f *fakeFileStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	data, ok := f.saved[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) Remove(ctx context.Context, name string) error {
	delete(f.saved, name)
	return nil
}

func (f *fakeFileStore) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	for _, data := range f.saved {
		total += int64(len(data))
	}
	return total, nil
}

// multipartWork builds a multipart request body with an image part and the
// title/description fields.
func multipartWork(t *testing.T, title, description, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}

	if err := w.WriteField("title", title); err != nil {
		t.Fatalf("failed to write title field: %v", err)
	}
	if description != "" {
		if err := w.WriteField("description", description); err != nil {
			t.Fatalf("failed to write description field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleList_Empty(t *testing.T) {
	store := memory.NewStore()
	handler := HandleList(store)

	req := httptest.NewRequest(http.MethodGet, "/api/works", http.NoBody)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}

	var works []*core.Work
	if err := json.NewDecoder(rec.Body).Decode(&works); err != nil {
		t.Fatalf("response is not a JSON array: %v", err)
	}
	if len(works) != 0 {
		t.Errorf("expected an empty collection, got %d entries", len(works))
	}
}

func TestHandleCreate_Success(t *testing.T) {
	store := memory.NewStore()
	fileStore := newFakeFileStore()
	handler := HandleCreate(store, fileStore, false)

	body, contentType := multipartWork(t, "Sunset", "evening shot", "sunset.jpg", "image/jpeg", []byte("jpeg data"))
	req := httptest.NewRequest(http.MethodPost, "/api/works", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status mismatch: got %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var work core.Work
	if err := json.NewDecoder(rec.Body).Decode(&work); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if work.Title != "Sunset" {
		t.Errorf("title mismatch: got %q", work.Title)
	}
	if work.ID == "" {
		t.Error("created work has no id")
	}
	if !strings.HasPrefix(work.Image, "http://example.com/uploads/") {
		t.Errorf("image is not an absolute URL: %q", work.Image)
	}
	if work.Thumbnail != work.Image {
		t.Errorf("thumbnail should alias the image: image %q, thumbnail %q", work.Image, work.Thumbnail)
	}
	if work.FileSize != int64(len("jpeg data")) || work.FileType != "image/jpeg" {
		t.Errorf("file metadata mismatch: size %d, type %q", work.FileSize, work.FileType)
	}

	if len(fileStore.saved) != 1 {
		t.Errorf("expected one stored file, got %d", len(fileStore.saved))
	}
}

func TestHandleCreate_Thumbnails(t *testing.T) {
	store := memory.NewStore()
	fileStore := newFakeFileStore()
	handler := HandleCreate(store, fileStore, true)

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 640, 480))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	body, contentType := multipartWork(t, "Wide", "", "wide.png", "image/png", img.Bytes())
	req := httptest.NewRequest(http.MethodPost, "/api/works", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status mismatch: got %d, body %s", rec.Code, rec.Body.String())
	}

	var work core.Work
	if err := json.NewDecoder(rec.Body).Decode(&work); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if work.Thumbnail == work.Image {
		t.Error("thumbnail should be a separate file when generation is enabled")
	}
	if !strings.Contains(work.Thumbnail, "_thumb.jpg") {
		t.Errorf("thumbnail name mismatch: %q", work.Thumbnail)
	}
	if len(fileStore.saved) != 2 {
		t.Errorf("expected image and thumbnail stored, got %d files", len(fileStore.saved))
	}
}

func TestHandleCreate_NoFile(t *testing.T) {
	handler := HandleCreate(memory.NewStore(), newFakeFileStore(), false)

	body, contentType := multipartWork(t, "No Image", "", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/works", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleCreate_EmptyTitle(t *testing.T) {
	store := memory.NewStore()
	fileStore := newFakeFileStore()
	handler := HandleCreate(store, fileStore, false)

	body, contentType := multipartWork(t, "   ", "", "a.jpg", "image/jpeg", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/works", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// The uploaded file must be cleaned up and the collection untouched.
	if len(fileStore.saved) != 0 {
		t.Errorf("orphaned upload left behind: %d files", len(fileStore.saved))
	}
	works, _ := store.List(context.Background())
	if len(works) != 0 {
		t.Errorf("collection changed by rejected create: %d entries", len(works))
	}
}

func TestHandleCreate_UnsupportedType(t *testing.T) {
	fileStore := newFakeFileStore()
	handler := HandleCreate(memory.NewStore(), fileStore, false)

	body, contentType := multipartWork(t, "Nope", "", "tool.exe", "application/x-msdownload", []byte("MZ"))
	req := httptest.NewRequest(http.MethodPost, "/api/works", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status mismatch: got %d, want %d", rec.Code, http.StatusUnsupportedMediaType)
	}
	if len(fileStore.saved) != 0 {
		t.Errorf("nothing should be written for a rejected upload, got %d files", len(fileStore.saved))
	}
}

func TestHandleUpdate(t *testing.T) {
	store := memory.NewStore()
	handler := HandleUpdate(store)
	ctx := context.Background()

	work := core.NewWork("old title", "old", "/uploads/x.jpg", "/uploads/x.jpg", "image/jpeg", 5)
	if err := store.Create(ctx, work); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/works/"+work.ID, strings.NewReader(`{"title":"new title","description":"new"}`))
	req = withURLParam(req, "id", work.ID)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d, body %s", rec.Code, rec.Body.String())
	}

	var updated core.Work
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Title != "new title" {
		t.Errorf("title mismatch: got %q", updated.Title)
	}
	if !strings.HasSuffix(updated.Image, "/uploads/x.jpg") {
		t.Errorf("image must not change on update: got %q", updated.Image)
	}
}

func TestHandleUpdate_Errors(t *testing.T) {
	store := memory.NewStore()
	handler := HandleUpdate(store)

	work := core.NewWork("kept", "", "/uploads/x.jpg", "/uploads/x.jpg", "image/jpeg", 5)
	if err := store.Create(context.Background(), work); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	testCases := []struct {
		name       string
		id         string
		body       string
		wantStatus int
	}{
		{"empty title", work.ID, `{"title":""}`, http.StatusBadRequest},
		{"invalid body", work.ID, `{{{`, http.StatusBadRequest},
		{"unknown id", "missing", `{"title":"x"}`, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/works/"+tc.id, strings.NewReader(tc.body))
			req = withURLParam(req, "id", tc.id)
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status mismatch: got %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestHandleDelete(t *testing.T) {
	store := memory.NewStore()
	fileStore := newFakeFileStore()
	handler := HandleDelete(store, fileStore)
	ctx := context.Background()

	fileStore.saved["x.jpg"] = []byte("data")
	work := core.NewWork("doomed", "", "/uploads/x.jpg", "/uploads/x.jpg", "image/jpeg", 4)
	if err := store.Create(ctx, work); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/works/"+work.ID, http.NoBody)
	req = withURLParam(req, "id", work.ID)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d, body %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Success   bool   `json:"success"`
		DeletedID string `json:"deletedId"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success || response.DeletedID != work.ID {
		t.Errorf("response mismatch: %+v", response)
	}

	if _, ok := fileStore.saved["x.jpg"]; ok {
		t.Error("backing file was not removed")
	}

	// Deleting the same id again is a 404.
	req = httptest.NewRequest(http.MethodDelete, "/api/works/"+work.ID, http.NoBody)
	req = withURLParam(req, "id", work.ID)
	rec = httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("repeated delete: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleStats(t *testing.T) {
	store := memory.NewStore()
	fileStore := newFakeFileStore()
	handler := HandleStats(store, fileStore)
	ctx := context.Background()

	fileStore.saved["a.jpg"] = bytes.Repeat([]byte("x"), 1024)
	if err := store.Create(ctx, core.NewWork("older", "", "/uploads/a.jpg", "/uploads/a.jpg", "image/jpeg", 1024)); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := store.Create(ctx, core.NewWork("latest", "", "/uploads/a.jpg", "/uploads/a.jpg", "image/jpeg", 1024)); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", http.NoBody)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d", rec.Code)
	}

	var response struct {
		TotalWorks  int    `json:"totalWorks"`
		TotalSize   int64  `json:"totalSize"`
		TotalSizeMB string `json:"totalSizeMB"`
		LastWork    string `json:"lastWork"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.TotalWorks != 2 {
		t.Errorf("totalWorks mismatch: got %d", response.TotalWorks)
	}
	if response.TotalSize != 1024 {
		t.Errorf("totalSize mismatch: got %d", response.TotalSize)
	}
	if response.TotalSizeMB == "" {
		t.Error("totalSizeMB is empty")
	}
	if response.LastWork != "latest" {
		t.Errorf("lastWork mismatch: got %q", response.LastWork)
	}
}

func TestHandleBackup(t *testing.T) {
	store := memory.NewStore()
	handler := HandleBackup(store)

	if err := store.Create(context.Background(), core.NewWork("saved", "", "/uploads/a.jpg", "/uploads/a.jpg", "image/jpeg", 1)); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/backup", http.NoBody)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "portfolio-backup.json") {
		t.Errorf("Content-Disposition mismatch: %q", cd)
	}

	var response struct {
		Timestamp string       `json:"timestamp"`
		Count     int          `json:"count"`
		Works     []*core.Work `json:"works"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Count != 1 || len(response.Works) != 1 {
		t.Errorf("backup content mismatch: count %d, works %d", response.Count, len(response.Works))
	}
	if response.Timestamp == "" {
		t.Error("backup timestamp is empty")
	}
}

func TestHandleServeFile(t *testing.T) {
	fileStore := newFakeFileStore()
	fileStore.saved["pic.png"] = []byte("png bytes")
	handler := HandleServeFile(fileStore)

	req := httptest.NewRequest(http.MethodGet, "/uploads/pic.png", http.NoBody)
	req = withURLParam(req, "name", "pic.png")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "png bytes" {
		t.Errorf("body mismatch: got %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "image/png") {
		t.Errorf("content type mismatch: %q", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/uploads/none.png", http.NoBody)
	req = withURLParam(req, "name", "none.png")
	rec = httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// TestAdminLifecycle drives the full flow through a router: login, create a
// work, see it listed first, delete it, see the collection empty again.
func TestAdminLifecycle(t *testing.T) {
	const password = "gallery-secret"
	svc := auth.NewService([]byte("lifecycle-secret"), password)
	store := memory.NewStore()
	fileStore := newFakeFileStore()

	r := chi.NewRouter()
	r.Post("/api/login", auth.HandleLogin(svc))
	r.Get("/api/works", HandleList(store))
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth(svc))
		r.Post("/api/works", HandleCreate(store, fileStore, false))
		r.Delete("/api/works/{id}", HandleDelete(store, fileStore))
	})

	// Login.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"`+password+`"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: status %d", rec.Code)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}

	// Creating without a token is rejected before any handler logic.
	body, contentType := multipartWork(t, "Sunset", "", "sunset.jpg", "image/jpeg", []byte("jpeg"))
	req := httptest.NewRequest(http.MethodPost, "/api/works", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Create with the token.
	body, contentType = multipartWork(t, "Sunset", "", "sunset.jpg", "image/jpeg", []byte("jpeg"))
	req = httptest.NewRequest(http.MethodPost, "/api/works", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: status %d, body %s", rec.Code, rec.Body.String())
	}

	// The new work is listed first with an absolute image URL.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/works", http.NoBody))
	var works []*core.Work
	if err := json.NewDecoder(rec.Body).Decode(&works); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(works) != 1 || works[0].Title != "Sunset" {
		t.Fatalf("list mismatch: %+v", works)
	}
	if !strings.HasPrefix(works[0].Image, "http://") {
		t.Errorf("image is not absolute: %q", works[0].Image)
	}

	// Delete it.
	req = httptest.NewRequest(http.MethodDelete, "/api/works/"+works[0].ID, http.NoBody)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: status %d", rec.Code)
	}

	// Collection is empty again and the file is gone.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/works", http.NoBody))
	works = nil
	if err := json.NewDecoder(rec.Body).Decode(&works); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(works) != 0 {
		t.Errorf("collection not empty after delete: %d entries", len(works))
	}
	if len(fileStore.saved) != 0 {
		t.Errorf("backing files not cleaned up: %d left", len(fileStore.saved))
	}
}
