package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileService struct {
	file        *model.File
	uploadURL   string
	downloadURL string
	err         error

	purchasedID string
	processedID string
	deletedID   string
}

func (s *fakeFileService) CreateFile(ctx context.Context, userID, name, fileType string) (*model.File, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.file, s.uploadURL, nil
}

func (s *fakeFileService) ListFiles(ctx context.Context, userID string) ([]model.File, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.file == nil {
		return nil, nil
	}
	return []model.File{*s.file}, nil
}

func (s *fakeFileService) GetFile(ctx context.Context, fileID, userID string) (*model.File, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.file, nil
}

func (s *fakeFileService) StartProcessing(ctx context.Context, fileID, userID string) error {
	s.processedID = fileID
	return s.err
}

func (s *fakeFileService) Purchase(ctx context.Context, fileID, userID string) error {
	s.purchasedID = fileID
	return s.err
}

func (s *fakeFileService) Download(ctx context.Context, fileID, userID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.downloadURL, nil
}

func (s *fakeFileService) Delete(ctx context.Context, fileID, userID string) error {
	s.deletedID = fileID
	return s.err
}

// injectUser stands in for the auth middleware.
func injectUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				ctx := context.WithValue(r.Context(), middleware.UserContextKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newFileMux(svc *fakeFileService, userID string) *http.ServeMux {
	h := NewFileHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, injectUser(userID))
	return mux
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateFile(t *testing.T) {
	svc := &fakeFileService{
		file:      &model.File{ID: "f1", UserID: "u1", Name: "report.pdf", State: model.FileStateUploading},
		uploadURL: "https://storage.test/upload/f1",
	}
	mux := newFileMux(svc, "u1")

	body := `{"fileName":"report.pdf","fileType":"application/pdf"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/files", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var data dto.CreateFileData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "f1", data.File.ID)
	assert.Equal(t, "https://storage.test/upload/f1", data.UploadURL)
}

func TestCreateFileValidation(t *testing.T) {
	mux := newFileMux(&fakeFileService{}, "u1")

	for name, body := range map[string]string{
		"invalid json":     `{`,
		"missing fileName": `{"fileType":"application/pdf"}`,
		"missing fileType": `{"fileName":"report.pdf"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/files", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decodeResponse(t, rec).Success)
		})
	}
}

func TestFileRoutesRequireIdentity(t *testing.T) {
	mux := newFileMux(&fakeFileService{}, "")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/user/files"},
		{http.MethodPost, "/user/files"},
		{http.MethodPost, "/user/files/f1/process"},
		{http.MethodPost, "/user/files/f1/purchase"},
		{http.MethodPost, "/user/files/f1/download"},
		{http.MethodDelete, "/user/files/f1"},
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestPurchaseConflictMapsTo409(t *testing.T) {
	svc := &fakeFileService{err: repository.ErrInvalidState}
	mux := newFileMux(svc, "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/files/f1/purchase", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "f1", svc.purchasedID)
}

func TestPurchaseInsufficientBalanceMapsTo402(t *testing.T) {
	svc := &fakeFileService{err: repository.ErrInsufficientBalance}
	mux := newFileMux(svc, "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/files/f1/purchase", nil))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestUnknownFileMapsTo404(t *testing.T) {
	svc := &fakeFileService{err: repository.ErrFileNotFound}
	mux := newFileMux(svc, "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/files/f1/process", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadFile(t *testing.T) {
	svc := &fakeFileService{downloadURL: "https://storage.test/download/f1-processed"}
	mux := newFileMux(svc, "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/files/f1/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var data dto.DownloadData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "https://storage.test/download/f1-processed", data.DownloadURL)
}

func TestDeleteFile(t *testing.T) {
	svc := &fakeFileService{}
	mux := newFileMux(svc, "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/user/files/f1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "f1", svc.deletedID)
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newFileMux(&fakeFileService{}, "u1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/user/files/f1/purchase", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
