package handler

import (
	"errors"
	"mime/multipart"

	"banner-editor/internal/core/logger"
	"banner-editor/internal/features/banners/domain"
	"banner-editor/internal/features/banners/ports"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the human-readable error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// MessageResponse confirms an operation without returning data.
type MessageResponse struct {
	Message string `json:"message"`
}

// BannerResponse is a banner plus the public path of one of its image variants.
type BannerResponse struct {
	*domain.Banner
	ImagePath string `json:"image_path,omitempty"`
}

// ImagePathResponse carries the public path of an image variant.
type ImagePathResponse struct {
	Path string `json:"path"`
}

// BannerFormRequest is the multipart form of create and update requests.
// The optional "image" file part carries the upload.
type BannerFormRequest struct {
	Name        string `form:"name" validate:"required,max=255"`
	URL         string `form:"url" validate:"omitempty,url,max=2048"`
	Enabled     bool   `form:"enabled"`
	RemoveImage bool   `form:"remove_image"`
}

// BannerHandler handles HTTP requests for banners.
type BannerHandler struct {
	service  ports.BannerService
	validate *validator.Validate
}

// NewBannerHandler creates a new BannerHandler.
func NewBannerHandler(service ports.BannerService) *BannerHandler {
	return &BannerHandler{
		service:  service,
		validate: validator.New(),
	}
}

func rayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   rayID(c),
	})
}

// respondError maps service errors to HTTP statuses.
func respondError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Banner not found")
	case errors.Is(err, domain.ErrInvalidFilename),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrUnknownSize):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPositionConflict),
		errors.Is(err, domain.ErrPrecisionExhausted):
		logger.Get().Warn("Banner order conflict", zap.String("action", action), zap.Error(err))
		return fail(c, fiber.StatusConflict, "Banner order changed, please retry")
	case errors.Is(err, domain.ErrPersistenceUnavailable),
		errors.Is(err, domain.ErrLockUnavailable):
		logger.Get().Error("Banner store unavailable", zap.String("action", action), zap.Error(err))
		return fail(c, fiber.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logger.Get().Error("Failed to "+action, zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

func bannerID(c *fiber.Ctx) (int64, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return int64(id), true
}

// parseForm reads and validates the form fields and the optional image part.
// The returned closer releases the upload and is never nil on success.
func (h *BannerHandler) parseForm(c *fiber.Ctx) (*BannerFormRequest, *domain.ImageUpload, func(), error) {
	var req BannerFormRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, nil, err
	}
	if err := h.validate.Struct(&req); err != nil {
		return nil, nil, nil, err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, nil, err
	}
	files := form.File["image"]
	if len(files) == 0 || files[0].Filename == "" {
		return &req, nil, func() {}, nil
	}

	upload, closer, err := openUpload(files[0])
	if err != nil {
		return nil, nil, nil, err
	}
	return &req, upload, closer, nil
}

func openUpload(fh *multipart.FileHeader) (*domain.ImageUpload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &domain.ImageUpload{Filename: fh.Filename, Content: f}, func() { f.Close() }, nil
}

// ListBanners handles GET /banners.
// @Summary List banners
// @Description Returns every banner in render order.
// @Tags Banners
// @Produce json
// @Success 200 {array} domain.Banner
// @Failure 503 {object} ErrorResponse
// @Router /banners [get]
func (h *BannerHandler) ListBanners(c *fiber.Ctx) error {
	banners, err := h.service.List(c.Context(), false)
	if err != nil {
		return respondError(c, err, "list banners")
	}
	return c.Status(fiber.StatusOK).JSON(banners)
}

// GetBanner handles GET /banners/:id.
// @Summary Get a banner
// @Description Returns one banner with the path of its edit-view image.
// @Tags Banners
// @Produce json
// @Param id path int true "Banner ID"
// @Success 200 {object} BannerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /banners/{id} [get]
func (h *BannerHandler) GetBanner(c *fiber.Ctx) error {
	id, ok := bannerID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid banner id")
	}

	banner, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err, "get banner")
	}
	path, err := h.service.GetImageVariantPath(c.Context(), id, domain.SizeEditImage)
	if err != nil {
		logger.ForBanner(id).Warn("Edit image unavailable", zap.Error(err))
	}

	return c.Status(fiber.StatusOK).JSON(BannerResponse{Banner: banner, ImagePath: path})
}

// CreateBanner handles POST /banners.
// @Summary Create a banner
// @Description Creates a banner at the end of the order. A banner without image is always disabled.
// @Tags Banners
// @Accept mpfd
// @Produce json
// @Param name formData string true "Display name"
// @Param url formData string false "Target URL"
// @Param enabled formData bool false "Show in the rotator"
// @Param image formData file false "Banner image"
// @Success 201 {object} domain.Banner
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /banners [post]
func (h *BannerHandler) CreateBanner(c *fiber.Ctx) error {
	req, upload, closeUpload, err := h.parseForm(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid banner form: "+err.Error())
	}
	defer closeUpload()

	banner, err := h.service.Create(c.Context(), domain.CreateInput{
		Name:    req.Name,
		URL:     req.URL,
		Enabled: req.Enabled,
		Image:   upload,
	})
	if err != nil {
		return respondError(c, err, "create banner")
	}

	return c.Status(fiber.StatusCreated).JSON(banner)
}

// UpdateBanner handles PUT /banners/:id.
// @Summary Update a banner
// @Description Replaces the fields of a banner. A new image replaces every file of the old one.
// @Tags Banners
// @Accept mpfd
// @Produce json
// @Param id path int true "Banner ID"
// @Param name formData string true "Display name"
// @Param url formData string false "Target URL"
// @Param enabled formData bool false "Show in the rotator"
// @Param remove_image formData bool false "Drop the current image"
// @Param image formData file false "Replacement image"
// @Success 200 {object} domain.Banner
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /banners/{id} [put]
func (h *BannerHandler) UpdateBanner(c *fiber.Ctx) error {
	id, ok := bannerID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid banner id")
	}

	req, upload, closeUpload, err := h.parseForm(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid banner form: "+err.Error())
	}
	defer closeUpload()

	banner, err := h.service.Update(c.Context(), id, domain.UpdateInput{
		Name:        req.Name,
		URL:         req.URL,
		Enabled:     req.Enabled,
		Image:       upload,
		RemoveImage: req.RemoveImage,
	})
	if err != nil {
		return respondError(c, err, "update banner")
	}

	return c.Status(fiber.StatusOK).JSON(banner)
}

// MoveBanner handles POST /banners/:id/move.
// @Summary Move a banner
// @Description Swaps a banner with its neighbour. Moving past either end is a no-op.
// @Tags Banners
// @Produce json
// @Param id path int true "Banner ID"
// @Param direction query string true "up or down" Enums(up, down)
// @Success 200 {object} domain.Banner
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /banners/{id}/move [post]
func (h *BannerHandler) MoveBanner(c *fiber.Ctx) error {
	id, ok := bannerID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid banner id")
	}
	dir, err := domain.ParseDirection(c.Query("direction"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Direction must be up or down")
	}

	banner, err := h.service.Move(c.Context(), id, dir)
	if err != nil {
		return respondError(c, err, "move banner")
	}

	return c.Status(fiber.StatusOK).JSON(banner)
}

// DeleteBanner handles DELETE /banners/:id.
// @Summary Delete a banner
// @Description Removes the banner and every stored image file.
// @Tags Banners
// @Produce json
// @Param id path int true "Banner ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /banners/{id} [delete]
func (h *BannerHandler) DeleteBanner(c *fiber.Ctx) error {
	id, ok := bannerID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid banner id")
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return respondError(c, err, "delete banner")
	}

	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: "Banner deleted successfully"})
}

// GetImageVariant handles GET /banners/:id/image/:size.
// @Summary Get an image variant path
// @Description Returns the public path of a resized banner image, generating it on first request.
// @Tags Banners
// @Produce json
// @Param id path int true "Banner ID"
// @Param size path string true "Variant size" Enums(thumbnail, edit_image)
// @Success 200 {object} ImagePathResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /banners/{id}/image/{size} [get]
func (h *BannerHandler) GetImageVariant(c *fiber.Ctx) error {
	id, ok := bannerID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid banner id")
	}

	path, err := h.service.GetImageVariantPath(c.Context(), id, c.Params("size"))
	if err != nil {
		return respondError(c, err, "get image variant")
	}
	if path == "" {
		return fail(c, fiber.StatusNotFound, "Image not available")
	}

	return c.Status(fiber.StatusOK).JSON(ImagePathResponse{Path: path})
}

// Rotator handles GET /rotator.
// @Summary Public rotator
// @Description Returns enabled banners in render order with thumbnail paths.
// @Tags Rotator
// @Produce json
// @Success 200 {array} BannerResponse
// @Failure 503 {object} ErrorResponse
// @Router /rotator [get]
func (h *BannerHandler) Rotator(c *fiber.Ctx) error {
	banners, err := h.service.List(c.Context(), true)
	if err != nil {
		return respondError(c, err, "list rotator banners")
	}

	out := make([]BannerResponse, 0, len(banners))
	for i := range banners {
		b := &banners[i]
		path, err := h.service.GetImageVariantPath(c.Context(), b.ID, domain.SizeThumbnail)
		if err != nil {
			logger.ForBanner(b.ID).Warn("Thumbnail unavailable", zap.Error(err))
		}
		out = append(out, BannerResponse{Banner: b, ImagePath: path})
	}

	return c.Status(fiber.StatusOK).JSON(out)
}
