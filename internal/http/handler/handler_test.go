package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/service"
	serviceMocks "docvault/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	app.Use(middleware.Principal())
	return app
}

func asPrincipal(req *http.Request, principal string) *http.Request {
	req.Header.Set(middleware.PrincipalHeader, principal)
	return req
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := newApp()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestSwaggerUI(t *testing.T) {
	app := newApp()
	app.Get("/docs", SwaggerUI())

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/openapi.yaml")
}

func TestLivenessProbe(t *testing.T) {
	app := newApp()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Post("/documents", UploadDocument(mockSvc))

	multipartBody := func(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
		t.Helper()
		body := new(bytes.Buffer)
		w := multipart.NewWriter(body)
		fw, err := w.CreateFormFile("file", "inv.pdf")
		require.NoError(t, err)
		fw.Write([]byte("pdf bytes"))
		for k, v := range fields {
			w.WriteField(k, v)
		}
		require.NoError(t, w.Close())
		return body, w.FormDataContentType()
	}

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{
			"title":     "Invoice",
			"tags":      "finance,2026",
			"is_public": "false",
		})

		mockSvc.On("Upload", mock.Anything, "u1", mock.Anything, mock.MatchedBy(func(meta service.UploadMeta) bool {
			return meta.Title == "Invoice" &&
				meta.FileName == "inv.pdf" &&
				len(meta.Tags) == 2 &&
				!meta.IsPublic
		})).Return(&model.Document{ID: uuid.NewString(), Title: "Invoice"}, nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/documents", body), "u1")
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("file required", func(t *testing.T) {
		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("{}")), "u1")
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"title": "Invoice"})

		mockSvc.On("Upload", mock.Anything, middleware.AnonymousPrincipal, mock.Anything, mock.Anything).
			Return(nil, service.ErrUnauthenticated).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "UNAUTHENTICATED", payload.Error.Code)
	})
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &model.AccessibleDocuments{
			Owned:        []model.Document{{ID: uuid.NewString(), Title: "Invoice"}},
			SharedWithMe: []model.Document{},
		}
		mockSvc.On("ListAccessible", mock.Anything, "u1").Return(expected, nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/documents", nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body model.AccessibleDocuments
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Len(t, body.Owned, 1)
		mockSvc.AssertExpectations(t)
	})

	t.Run("internal error", func(t *testing.T) {
		mockSvc.On("ListAccessible", mock.Anything, "u1").Return(nil, errors.New("boom")).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/documents", nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Get("/documents/:id", GetDocument(mockSvc))

	docID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "u1", docID).
			Return(&model.Document{ID: docID, Title: "Invoice"}, nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/documents/"+docID, nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid", nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("denied and missing are the same 404", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "u3", docID).
			Return(nil, service.ErrAccessDenied).Once()
		mockSvc.On("Get", mock.Anything, "u4", docID).
			Return(nil, service.ErrNotFound).Once()

		for _, principal := range []string{"u3", "u4"} {
			req := asPrincipal(httptest.NewRequest(http.MethodGet, "/documents/"+docID, nil), principal)
			resp, _ := app.Test(req)

			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			var payload errorPayload
			json.NewDecoder(resp.Body).Decode(&payload)
			assert.Equal(t, "NOT_FOUND", payload.Error.Code)
			assert.Equal(t, "document not found", payload.Error.Message)
		}
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocumentURL(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Get("/documents/:id/url", GetDocumentURL(mockSvc))

	docID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, "u1", docID).
			Return("https://blobs.example.com/x?sig=abc", nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/url", nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "https://blobs.example.com/x?sig=abc", body["url"])
	})

	t.Run("denied", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, "u3", docID).
			Return("", service.ErrAccessDenied).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/url", nil), "u3")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Patch("/documents/:id", UpdateDocument(mockSvc))

	docID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, "u1", docID, mock.MatchedBy(func(p model.DocumentPatch) bool {
			return p.Title != nil && *p.Title == "Renamed" && p.Description == nil
		})).Return(nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodPatch, "/documents/"+docID,
			strings.NewReader(`{"title":"Renamed"}`)), "u1")
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("non-owner gets 404", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, "u2", docID, mock.Anything).
			Return(service.ErrAccessDenied).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodPatch, "/documents/"+docID,
			strings.NewReader(`{"title":"Renamed"}`)), "u2")
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	docID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "u1", docID).Return(nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodDelete, "/documents/"+docID, nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("conflict advises retry", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "u1", docID).
			Return(repository.ErrConflict).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodDelete, "/documents/"+docID, nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "CONFLICT", payload.Error.Code)
	})
}

func TestShareDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Post("/documents/:id/shares", ShareDocument(mockSvc))

	docID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Share", mock.Anything, "u1", docID, "u2@example.com", model.PermissionView, mock.Anything).
			Return(nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/shares",
			strings.NewReader(`{"shared_with":"u2@example.com","permission":"view"}`)), "u1")
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid permission", func(t *testing.T) {
		mockSvc.On("Share", mock.Anything, "u1", docID, "u2", model.Permission("owner"), mock.Anything).
			Return(service.ErrInvalidPermission).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/shares",
			strings.NewReader(`{"shared_with":"u2","permission":"owner"}`)), "u1")
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "VALIDATION_ERROR", payload.Error.Code)
	})

	t.Run("non-owner gets 404", func(t *testing.T) {
		mockSvc.On("Share", mock.Anything, "u3", docID, "u4", model.PermissionView, mock.Anything).
			Return(service.ErrAccessDenied).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/shares",
			strings.NewReader(`{"shared_with":"u4","permission":"view"}`)), "u3")
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRevokeAccess(t *testing.T) {
	mockSvc := new(serviceMocks.MockVaultService)
	app := newApp()
	app.Delete("/documents/:id/shares/:recipient", RevokeAccess(mockSvc))

	docID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Revoke", mock.Anything, "u1", docID, "u2@example.com").Return(nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodDelete,
			"/documents/"+docID+"/shares/u2@example.com", nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("repeat revoke also succeeds", func(t *testing.T) {
		mockSvc.On("Revoke", mock.Anything, "u1", docID, "u2@example.com").Return(nil).Once()

		req := asPrincipal(httptest.NewRequest(http.MethodDelete,
			"/documents/"+docID+"/shares/u2@example.com", nil), "u1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}
