package submission

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"jobscout/internal/logger"
	"jobscout/internal/utils/parser"
)

// Repository is the storage surface the HTTP handlers need.
type Repository interface {
	Create(ctx context.Context, sub Submission) error
	Get(ctx context.Context, id string) (Submission, error)
	List(ctx context.Context, status string, limit int) ([]Submission, error)
}

const (
	// MaxTemplateBytes bounds an uploaded CV template.
	MaxTemplateBytes = 2 << 20
	templateField    = "template"
	uploadsDir       = "uploads"
)

var templateExtensions = map[string]bool{".doc": true, ".docx": true, ".pdf": true, ".txt": true}

type Handler struct {
	repo    Repository
	dataDir string
	log     *logger.Logger
	now     func() time.Time
}

// NewHandler stores uploaded templates under <dataDir>/uploads, the same
// root the template loader reads relative paths from.
func NewHandler(repo Repository, dataDir string) *Handler {
	return &Handler{repo: repo, dataDir: dataDir, log: logger.New("SubmissionHandler"), now: time.Now}
}

func errorBody(msg string) fiber.Map { return fiber.Map{"success": false, "error": msg} }

// HandleCreate accepts a JSON body or a multipart form. A multipart form
// may carry the CV template as a file in the "template" field.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var (
		req    CreateRequest
		upload *multipart.FileHeader
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid multipart form"))
		}
		req = formRequest(c)
		if files := form.File[templateField]; len(files) > 0 {
			if err := checkTemplate(files[0]); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(errorBody(err.Error()))
			}
			upload = files[0]
		}
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid body"))
	}
	if err := req.Normalize(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(err.Error()))
	}

	id := uuid.NewString()
	var saved string
	if upload != nil {
		rel := path.Join(uploadsDir, id+strings.ToLower(filepath.Ext(upload.Filename)))
		saved = filepath.Join(h.dataDir, filepath.FromSlash(rel))
		if err := h.saveTemplate(c, upload, saved); err != nil {
			h.log.LogErrorf("save template for %s: %v", id, err)
			return c.Status(fiber.StatusInternalServerError).JSON(errorBody("failed to store template"))
		}
		req.TemplatePath = rel
	}

	sub := req.Submission(id, h.now().UTC())
	if err := h.repo.Create(c.UserContext(), sub); err != nil {
		h.log.LogErrorf("create submission for %s: %v", sub.Email, err)
		if saved != "" {
			_ = os.Remove(saved)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("failed to store submission"))
	}
	h.log.LogInfof("submission %s stored (%d companies, %d roles)", sub.ID, len(sub.Companies), len(sub.Roles))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "submission": sub})
}

// formRequest reads the intake fields of a multipart form. List fields are
// comma-separated; visaRequired also accepts the "visa=yes" form.
func formRequest(c *fiber.Ctx) CreateRequest {
	visa := strings.ToLower(strings.TrimSpace(c.FormValue("visaRequired", c.FormValue("visa"))))
	return CreateRequest{
		Email:        c.FormValue("email"),
		Companies:    parser.ParseCommaList(c.FormValue("companies")),
		Roles:        parser.ParseCommaList(c.FormValue("roles")),
		Seniority:    c.FormValue("seniority"),
		Cities:       parser.ParseCommaList(c.FormValue("cities")),
		VisaRequired: visa == "yes" || visa == "true" || visa == "on" || visa == "1",
		Frequency:    c.FormValue("frequency"),
		TemplatePath: c.FormValue("templatePath"),
	}
}

func checkTemplate(fh *multipart.FileHeader) error {
	if fh.Size > MaxTemplateBytes {
		return fmt.Errorf("template too large (max %d MB)", MaxTemplateBytes>>20)
	}
	if !templateExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
		return errors.New("template must be a .doc, .docx, .pdf or .txt file")
	}
	return nil
}

func (h *Handler) saveTemplate(c *fiber.Ctx, fh *multipart.FileHeader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return c.SaveFile(fh, dest)
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid submission id"))
	}
	sub, err := h.repo.Get(c.UserContext(), id)
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("not_found"))
	}
	if err != nil {
		h.log.LogErrorf("get submission %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("failed to load submission"))
	}
	return c.JSON(fiber.Map{"success": true, "submission": sub})
}

func (h *Handler) HandleList(c *fiber.Ctx) error {
	var q ListQuery
	if err := parser.ParseQuery(c, &q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(err.Error()))
	}
	status := ""
	if q.Status != nil {
		status = *q.Status
	}
	subs, err := h.repo.List(c.UserContext(), status, q.limit())
	if err != nil {
		h.log.LogErrorf("list submissions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("failed to list submissions"))
	}
	return c.JSON(fiber.Map{"success": true, "submissions": subs})
}
