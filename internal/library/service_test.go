// AngelaMos | 2026
// service_test.go

package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/docstore"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

type memoryRepository struct {
	mu   sync.Mutex
	docs map[string]Document
	err  error
}

func newMemoryRepository(docs ...Document) *memoryRepository {
	m := &memoryRepository{docs: make(map[string]Document)}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *memoryRepository) Create(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[d.ID] = *d
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("get document: %w", core.ErrNotFound)
	}
	return &d, nil
}

func (m *memoryRepository) List(_ context.Context, subject string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Document, 0)
	for _, d := range m.docs {
		if subject != "" && d.Subject != subject {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("delete document: %w", core.ErrNotFound)
	}
	delete(m.docs, id)
	return nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	ttls    []time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls = append(s.ttls, ttl)
	return "https://objects.test/" + key + "?sig=x", nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var pdfBody = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

func geographyDoc() Document {
	return Document{
		ID:          "d1",
		Title:       "Iklim haritalari",
		Subject:     "cografya",
		PackageType: entitlement.PackageCografya,
		ObjectKey:   "library/d1.pdf",
		SizeBytes:   int64(len(pdfBody)),
	}
}

type fixture struct {
	svc   *Service
	repo  *memoryRepository
	store *memoryStore
	ents  *entitlement.Service
}

func newFixture(t *testing.T, docs ...Document) fixture {
	t.Helper()
	ents := entitlement.NewService(
		entitlement.NewMemoryStore(),
		docstore.Direct{},
		nil,
		entitlement.DefaultRevokePolicy(false),
		discard,
	)
	repo := newMemoryRepository(docs...)
	store := newMemoryStore()
	return fixture{
		svc:   NewService(repo, store, ents, 10*time.Minute, discard),
		repo:  repo,
		store: store,
		ents:  ents,
	}
}

func TestDownloadURLRequiresPackage(t *testing.T) {
	f := newFixture(t, geographyDoc())
	ctx := context.Background()

	_, err := f.svc.DownloadURL(ctx, Viewer{}, "d1")
	assert.True(t, errors.Is(err, core.ErrUnauthorized))

	_, err = f.svc.DownloadURL(ctx, Viewer{UserID: "u1"}, "d1")
	assert.True(t, errors.Is(err, core.ErrForbidden))

	require.True(t, f.ents.AddPackage(ctx, "u1", entitlement.PackageCografya, 24).Success)
	dl, err := f.svc.DownloadURL(ctx, Viewer{UserID: "u1"}, "d1")
	require.NoError(t, err)
	assert.Contains(t, dl.URL, "library/d1.pdf")
	assert.Equal(t, []time.Duration{10 * time.Minute}, f.store.ttls)
}

func TestDownloadURLFullBundleAndAdmin(t *testing.T) {
	f := newFixture(t, geographyDoc())
	ctx := context.Background()

	require.True(t, f.ents.AddPackage(ctx, "u2", entitlement.PackageFullBundle, 24).Success)
	_, err := f.svc.DownloadURL(ctx, Viewer{UserID: "u2"}, "d1")
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(ctx, Viewer{UserID: "a1", Admin: true}, "d1")
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(ctx, Viewer{UserID: "a1", Admin: true}, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestUploadStoresBodyAndMetadata(t *testing.T) {
	f := newFixture(t)
	in := UploadInput{Title: "Anayasa ozet", Subject: "vatandaslik", PackageType: string(entitlement.PackageVatandaslik)}

	doc, err := f.svc.Upload(context.Background(), in, bytes.NewReader(pdfBody), int64(len(pdfBody)))
	require.NoError(t, err)

	assert.Equal(t, "library/"+doc.ID+".pdf", doc.ObjectKey)
	assert.Equal(t, pdfBody, f.store.objects[doc.ObjectKey])
	assert.Equal(t, "application/pdf", f.store.types[doc.ObjectKey])

	stored, err := f.repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.PackageVatandaslik, stored.PackageType)
}

func TestUploadRejectsInvalidBodies(t *testing.T) {
	in := UploadInput{Title: "t", Subject: "s", PackageType: string(entitlement.PackageTarih)}

	tests := []struct {
		name string
		body []byte
		size int64
	}{
		{"not a pdf", []byte("PK\x03\x04zipfile"), 11},
		{"too short", []byte("%PD"), 3},
		{"empty", nil, 0},
		{"too large", pdfBody, MaxUploadBytes + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Upload(context.Background(), in, bytes.NewReader(tt.body), tt.size)
			assert.True(t, errors.Is(err, core.ErrInvalidInput))
			assert.Empty(t, f.store.objects)
		})
	}
}

func TestUploadRemovesObjectWhenMetadataFails(t *testing.T) {
	f := newFixture(t)
	f.repo.err = errors.New("mongo down")
	in := UploadInput{Title: "t", Subject: "s", PackageType: string(entitlement.PackageTarih)}

	_, err := f.svc.Upload(context.Background(), in, bytes.NewReader(pdfBody), int64(len(pdfBody)))
	require.Error(t, err)
	assert.Empty(t, f.store.objects)
}

func TestDeleteRemovesObject(t *testing.T) {
	f := newFixture(t, geographyDoc())
	f.store.objects["library/d1.pdf"] = pdfBody

	require.NoError(t, f.svc.Delete(context.Background(), "d1"))
	assert.Empty(t, f.store.objects)

	err := f.svc.Delete(context.Background(), "d1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

type stubVerifier struct{}

func (stubVerifier) VerifyAccessToken(_ context.Context, token string) (*middleware.AccessTokenClaims, error) {
	switch token {
	case "admin":
		return &middleware.AccessTokenClaims{UserID: "a1", Admin: true}, nil
	case "user":
		return &middleware.AccessTokenClaims{UserID: "u1"}, nil
	}
	return nil, core.ErrTokenInvalid
}

func multipartUpload(t *testing.T, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="notes.pdf"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(pdfBody)
	require.NoError(t, err)

	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestLibraryHandlers(t *testing.T) {
	f := newFixture(t, geographyDoc())
	r := chi.NewRouter()
	h := NewHandler(f.svc)
	auth := middleware.Authenticator(stubVerifier{})
	h.RegisterRoutes(r, auth)
	h.RegisterAdminRoutes(r, auth, middleware.RequireAdmin)

	validFields := map[string]string{
		"title":        "Iklim",
		"subject":      "cografya",
		"package_type": string(entitlement.PackageCografya),
	}
	badType := map[string]string{
		"title":        "Iklim",
		"subject":      "cografya",
		"package_type": "astronomi",
	}

	tests := []struct {
		name        string
		method      string
		path        string
		token       string
		contentType string
		fields      map[string]string
		want        int
	}{
		{"public list", http.MethodGet, "/library", "", "", nil, http.StatusOK},
		{"download needs auth", http.MethodGet, "/library/d1/download", "", "", nil, http.StatusUnauthorized},
		{"download needs package", http.MethodGet, "/library/d1/download", "user", "", nil, http.StatusForbidden},
		{"download unknown", http.MethodGet, "/library/nope/download", "admin", "", nil, http.StatusNotFound},
		{"admin download", http.MethodGet, "/library/d1/download", "admin", "", nil, http.StatusOK},
		{"upload forbidden", http.MethodPost, "/admin/library", "user", "application/pdf", validFields, http.StatusForbidden},
		{"upload wrong type", http.MethodPost, "/admin/library", "admin", "image/png", validFields, http.StatusBadRequest},
		{"upload bad package", http.MethodPost, "/admin/library", "admin", "application/pdf", badType, http.StatusBadRequest},
		{"upload", http.MethodPost, "/admin/library", "admin", "application/pdf", validFields, http.StatusCreated},
		{"delete", http.MethodDelete, "/admin/library/d1", "admin", "", nil, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.contentType != "" {
				body, ct := multipartUpload(t, tt.contentType, tt.fields)
				req = httptest.NewRequest(tt.method, tt.path, body)
				req.Header.Set("Content-Type", ct)
			} else {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(""))
			}
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
