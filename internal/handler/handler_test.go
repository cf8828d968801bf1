package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tempspec/internal/authz"
	"tempspec/internal/middleware"
	"tempspec/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var testSecret = []byte("handler-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func bearer(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": id.String(), "role": role, "typ": "access"}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func passThrough(c *gin.Context) { c.Next() }

// fakeSpecService records the actor it saw and returns canned results.
type fakeSpecService struct {
	service.SpecService
	actor     authz.Actor
	err       error
	spec      *service.SpecResponse
	filter    service.SpecListFilter
	create    service.CreateSpecRequest
	activated service.UploadedFile
	extended  *service.UploadedFile
	extendReq service.ExtendRequest
	download  *service.Download
}

func (f *fakeSpecService) List(_ context.Context, a authz.Actor, filter service.SpecListFilter) ([]service.SpecResponse, int64, error) {
	f.actor, f.filter = a, filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return []service.SpecResponse{*f.spec}, 1, nil
}

func (f *fakeSpecService) Create(_ context.Context, a authz.Actor, req service.CreateSpecRequest) (*service.SpecResponse, error) {
	f.actor, f.create = a, req
	return f.spec, f.err
}

func (f *fakeSpecService) Get(_ context.Context, a authz.Actor, _ string) (*service.SpecResponse, error) {
	f.actor = a
	return f.spec, f.err
}

func (f *fakeSpecService) Activate(_ context.Context, a authz.Actor, _ string, file service.UploadedFile) (*service.SpecResponse, error) {
	f.actor, f.activated = a, file
	return f.spec, f.err
}

func (f *fakeSpecService) Extend(_ context.Context, a authz.Actor, _ string, req service.ExtendRequest, file *service.UploadedFile) (*service.SpecResponse, error) {
	f.actor, f.extendReq, f.extended = a, req, file
	return f.spec, f.err
}

func (f *fakeSpecService) Preview(_ context.Context, a authz.Actor, _ service.PreviewRequest) ([]byte, error) {
	f.actor = a
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7"), nil
}

func (f *fakeSpecService) Download(_ context.Context, a authz.Actor, _ string, _ service.Artifact) (*service.Download, error) {
	f.actor = a
	if f.err != nil {
		return nil, f.err
	}
	return f.download, nil
}

func newSpecRouter(fake *fakeSpecService) *gin.Engine {
	router := gin.New()
	h := NewSpecHandler(fake, nil, 1<<20, zap.NewNop())
	h.RegisterRoutes(router.Group("/api"), middleware.Authenticate(testSecret), passThrough)
	return router
}

func decode(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", body.String(), err)
	}
	return out
}

func TestSpecHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{fmt.Errorf("%w: theme is required", service.ErrValidation), http.StatusBadRequest, "validation failed: theme is required"},
		{fmt.Errorf("%w: spec", service.ErrNotFound), http.StatusNotFound, "not found: spec"},
		{fmt.Errorf("%w: cannot activate", service.ErrIllegalTransition), http.StatusConflict, "illegal status transition: cannot activate"},
		{service.ErrConflict, http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: role", service.ErrForbidden), http.StatusForbidden, "forbidden: role"},
		{fmt.Errorf("%w: soffice exited 1", service.ErrGeneration), http.StatusInternalServerError, "Document generation failed"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			router := newSpecRouter(&fakeSpecService{err: tt.err})
			req := httptest.NewRequest(http.MethodGet, "/api/specs/"+uuid.NewString(), nil)
			req.Header.Set("Authorization", bearer(t, uuid.New(), "viewer"))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decode(t, w.Body)["error"]; got != tt.wantMsg {
				t.Errorf("error = %v, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestSpecHandler_RequiresAuthentication(t *testing.T) {
	router := newSpecRouter(&fakeSpecService{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/specs", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSpecHandler_ListPassesActorAndFilter(t *testing.T) {
	fake := &fakeSpecService{spec: &service.SpecResponse{SpecCode: "PE1140301"}}
	router := newSpecRouter(fake)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/specs?q=solder&status=active&page=2", nil)
	req.Header.Set("Authorization", bearer(t, userID, "editor"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	if fake.actor.UserID != userID || fake.actor.Role != "editor" {
		t.Errorf("actor = %+v", fake.actor)
	}
	want := service.SpecListFilter{Query: "solder", Status: "active", Page: 2, Limit: 15}
	if fake.filter != want {
		t.Errorf("filter = %+v, want %+v", fake.filter, want)
	}
	data := decode(t, w.Body)["data"].(map[string]any)
	if data["total"] != float64(1) || data["total_pages"] != float64(1) {
		t.Errorf("page = %v", data)
	}
}

func TestSpecHandler_CreateFromForm(t *testing.T) {
	fake := &fakeSpecService{spec: &service.SpecResponse{SpecCode: "PE1140301"}}
	router := newSpecRouter(fake)

	form := "theme=Solder&station=A&station=%E5%85%B6%E4%BB%96&station_other=Lab&tccs_level=L1&tccs_4m=Man"
	req := httptest.NewRequest(http.MethodPost, "/api/specs", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", bearer(t, uuid.New(), "editor"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	if fake.create.Theme != "Solder" || len(fake.create.Stations) != 2 || fake.create.Stations[1] != "其他" || fake.create.StationOther != "Lab" {
		t.Errorf("request = %+v", fake.create)
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestSpecHandler_ActivateAndExtendReadFiles(t *testing.T) {
	fake := &fakeSpecService{spec: &service.SpecResponse{Status: "active"}}
	router := newSpecRouter(fake)
	id := uuid.NewString()

	body, ct := multipartBody(t, nil, "file", "signed.pdf", []byte("%PDF signed"))
	req := httptest.NewRequest(http.MethodPost, "/api/specs/"+id+"/activate", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, uuid.New(), "admin"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("activate status = %d body = %s", w.Code, w.Body)
	}
	if fake.activated.Name != "signed.pdf" || string(fake.activated.Data) != "%PDF signed" {
		t.Errorf("activated file = %+v", fake.activated)
	}

	body, ct = multipartBody(t, map[string]string{"new_end_date": "2025-05-01"}, "", "", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/specs/"+id+"/extend", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, uuid.New(), "editor"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("extend status = %d body = %s", w.Code, w.Body)
	}
	if fake.extendReq.NewEndDate != "2025-05-01" || fake.extended != nil {
		t.Errorf("extend req = %+v file = %v", fake.extendReq, fake.extended)
	}
}

func TestSpecHandler_UploadTooLarge(t *testing.T) {
	fake := &fakeSpecService{spec: &service.SpecResponse{}}
	router := gin.New()
	NewSpecHandler(fake, nil, 4, zap.NewNop()).RegisterRoutes(router.Group("/api"), middleware.Authenticate(testSecret), passThrough)

	body, ct := multipartBody(t, nil, "file", "signed.pdf", []byte("way too large"))
	req := httptest.NewRequest(http.MethodPost, "/api/specs/"+uuid.NewString()+"/activate", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, uuid.New(), "admin"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSpecHandler_PreviewAndDownload(t *testing.T) {
	fake := &fakeSpecService{download: &service.Download{
		Filename:    "PE1140301.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Body:        io.NopCloser(strings.NewReader("docx bytes")),
	}}
	router := newSpecRouter(fake)
	auth := bearer(t, uuid.New(), "editor")

	req := httptest.NewRequest(http.MethodPost, "/api/specs/preview", strings.NewReader(`{"theme":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" || w.Body.String() != "%PDF-1.7" {
		t.Errorf("preview = %d %s %q", w.Code, w.Header().Get("Content-Type"), w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/specs/"+uuid.NewString()+"/download/word", nil)
	req.Header.Set("Authorization", auth)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "docx bytes" {
		t.Fatalf("download = %d %q", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="PE1140301.docx"` {
		t.Errorf("Content-Disposition = %s", cd)
	}
}

type fakeImageService struct {
	got service.UploadedFile
}

func (f *fakeImageService) Upload(_ context.Context, _ authz.Actor, file service.UploadedFile) (*service.ImageUploadResponse, error) {
	f.got = file
	return &service.ImageUploadResponse{Location: "/static/uploads/images/1_" + file.Name}, nil
}

func TestImageHandler_Upload(t *testing.T) {
	fake := &fakeImageService{}
	router := gin.New()
	NewImageHandler(fake, 1<<20, zap.NewNop()).RegisterRoutes(router.Group("/api"), middleware.Authenticate(testSecret), passThrough)
	auth := bearer(t, uuid.New(), "editor")

	body, ct := multipartBody(t, nil, "file", "a.png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	if got := decode(t, w.Body)["location"]; got != "/static/uploads/images/1_a.png" {
		t.Errorf("location = %v", got)
	}

	body, ct = multipartBody(t, map[string]string{"x": "y"}, "", "", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", auth)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file status = %d", w.Code)
	}
}
