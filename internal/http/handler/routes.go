package handler

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, call the engine, translate the result.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.VaultService) {
	app.Get("/openapi.yaml", OpenAPISpec())
	app.Get("/docs", SwaggerUI())

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/documents", UploadDocument(svc))
	app.Get("/documents", ListDocuments(svc))
	app.Get("/documents/shared-by-me", ListSharedByMe(svc))
	app.Get("/documents/:id", GetDocument(svc))
	app.Get("/documents/:id/url", GetDocumentURL(svc))
	app.Patch("/documents/:id", UpdateDocument(svc))
	app.Delete("/documents/:id", DeleteDocument(svc))
	app.Post("/documents/:id/shares", ShareDocument(svc))
	app.Delete("/documents/:id/shares/:recipient", RevokeAccess(svc))
}

// principalFromCtx extracts the caller identity stored by middleware.Principal.
func principalFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(middleware.PrincipalLocalKey).(string); ok && v != "" {
		return v
	}
	return middleware.AnonymousPrincipal
}

// OpenAPISpec serves the OpenAPI document from the working directory.
func OpenAPISpec() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	}
}

// SwaggerUI serves a minimal swagger-ui page pointed at /openapi.yaml.
func SwaggerUI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	}
}

// HealthCheck verifies DB connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadDocument accepts multipart/form-data with a "file" part plus metadata
// fields (title, description, category, tags, is_public).
func UploadDocument(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		meta := service.UploadMeta{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			FileName:    fh.Filename,
			FileSize:    fh.Size,
			FileType:    ct,
			Category:    c.FormValue("category"),
			IsPublic:    c.FormValue("is_public") == "true",
		}
		if tags := c.FormValue("tags"); tags != "" {
			meta.Tags = strings.Split(tags, ",")
		}

		doc, err := svc.Upload(c.UserContext(), principalFromCtx(c), f, meta)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListDocuments returns owned documents and documents shared with the caller.
func ListDocuments(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.ListAccessible(c.UserContext(), principalFromCtx(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ListSharedByMe returns documents the caller has outstanding shares on.
func ListSharedByMe(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.ListSharedBy(c.UserContext(), principalFromCtx(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": docs})
	}
}

// GetDocument returns a document the caller owns or has access to.
func GetDocument(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), principalFromCtx(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// GetDocumentURL returns a time-limited download URL for the document.
func GetDocumentURL(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		url, err := svc.DownloadURL(c.UserContext(), principalFromCtx(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

// UpdateDocument patches document metadata. Owner only.
func UpdateDocument(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var patch model.DocumentPatch
		if err := c.BodyParser(&patch); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		if err := svc.Update(c.UserContext(), principalFromCtx(c), id, patch); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteDocument deletes a document, its blob and all access records. Owner only.
func DeleteDocument(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), principalFromCtx(c), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// shareRequest is the body for POST /documents/:id/shares.
type shareRequest struct {
	SharedWith string     `json:"shared_with"`
	Permission string     `json:"permission"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ShareDocument grants another principal access to a document. Owner only.
func ShareDocument(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req shareRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		err := svc.Share(c.UserContext(), principalFromCtx(c), id, req.SharedWith, model.Permission(req.Permission), req.ExpiresAt)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RevokeAccess withdraws a previously granted share. Owner only, idempotent.
func RevokeAccess(svc service.VaultService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		recipient := c.Params("recipient")

		if err := svc.Revoke(c.UserContext(), principalFromCtx(c), id, recipient); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
