package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// HomePageHandler exposes the public home page document of a school.
type HomePageHandler struct {
	pages          *service.HomePageService
	maxUploadBytes int64
}

func NewHomePageHandler(pages *service.HomePageService, maxUploadBytes int64) *HomePageHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &HomePageHandler{pages: pages, maxUploadBytes: maxUploadBytes}
}

// Get godoc
// @Summary Get home page content
// @Tags HomePage
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /home-page-content/{schoolId} [get]
func (h *HomePageHandler) Get(c *gin.Context) {
	content, err := h.pages.Get(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Replace godoc
// @Summary Create or replace home page content
// @Tags HomePage
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.HomePageContentRequest true "Whole document"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /home-page-content/{schoolId} [post]
func (h *HomePageHandler) Replace(c *gin.Context) {
	var req dto.HomePageContentRequest
	if !bindJSON(c, &req, "invalid home page payload") {
		return
	}
	content, err := h.pages.Replace(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Delete godoc
// @Summary Delete home page content
// @Tags HomePage
// @Param schoolId path string true "School ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /home-page-content/{schoolId} [delete]
func (h *HomePageHandler) Delete(c *gin.Context) {
	if err := h.pages.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateHeader godoc
// @Summary Merge header fields
// @Tags HomePage
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.HeaderPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /home-page-content/{schoolId}/header [put]
func (h *HomePageHandler) UpdateHeader(c *gin.Context) {
	var patch dto.HeaderPatch
	if !bindJSON(c, &patch, "invalid header payload") {
		return
	}
	header, err := h.pages.UpdateHeader(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), patch)
	respondSection(c, header, err)
}

// UpdateAbout godoc
// @Summary Merge about fields
// @Tags HomePage
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.AboutPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /home-page-content/{schoolId}/about [put]
func (h *HomePageHandler) UpdateAbout(c *gin.Context) {
	var patch dto.AboutPatch
	if !bindJSON(c, &patch, "invalid about payload") {
		return
	}
	about, err := h.pages.UpdateAbout(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), patch)
	respondSection(c, about, err)
}

// UpdateSectionVisibility godoc
// @Summary Toggle home page sections
// @Tags HomePage
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.SectionVisibilityPatch true "Flags to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /home-page-content/{schoolId}/section-visibility [put]
func (h *HomePageHandler) UpdateSectionVisibility(c *gin.Context) {
	var patch dto.SectionVisibilityPatch
	if !bindJSON(c, &patch, "invalid section visibility payload") {
		return
	}
	visibility, err := h.pages.UpdateSectionVisibility(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), patch)
	respondSection(c, visibility, err)
}

// UpdateSEO godoc
// @Summary Merge SEO fields
// @Tags HomePage
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.SEOPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /home-page-content/{schoolId}/seo [put]
func (h *HomePageHandler) UpdateSEO(c *gin.Context) {
	var patch dto.SEOPatch
	if !bindJSON(c, &patch, "invalid seo payload") {
		return
	}
	seo, err := h.pages.UpdateSEO(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), patch)
	respondSection(c, seo, err)
}

// Upload godoc
// @Summary Upload home page media
// @Tags HomePage
// @Accept multipart/form-data
// @Produce json
// @Param schoolId path string true "School ID"
// @Param files formData file true "One or more files"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Security BearerAuth
// @Router /home-page-content/{schoolId}/upload [post]
func (h *HomePageHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "upload exceeds the size limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}
	result, err := h.pages.Upload(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), form.File["files"])
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func respondSection(c *gin.Context, section interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// registerSections mounts the item routes of every list section.
func (h *HomePageHandler) registerSections(rg *gin.RouterGroup) {
	mountSection[models.Slider, *models.Slider, dto.SliderPatch](rg, h.pages, service.SliderSection)
	mountSection[models.Statistic, *models.Statistic, dto.StatisticPatch](rg, h.pages, service.StatisticSection)
	mountSection[models.NewsItem, *models.NewsItem, dto.NewsPatch](rg, h.pages, service.NewsSection)
	mountSection[models.Video, *models.Video, dto.VideoPatch](rg, h.pages, service.VideoSection)
	mountSection[models.GalleryItem, *models.GalleryItem, dto.GalleryPatch](rg, h.pages, service.GallerySection)
	mountSection[models.Program, *models.Program, dto.ProgramPatch](rg, h.pages, service.ProgramSection)
	mountSection[models.Feature, *models.Feature, dto.FeaturePatch](rg, h.pages, service.FeatureSection)
	mountSection[models.Testimonial, *models.Testimonial, dto.TestimonialPatch](rg, h.pages, service.TestimonialSection)
}

// mountSection registers POST /<path>, PUT /<path>/reorder,
// PUT /<path>/:itemId and DELETE /<path>/:itemId.
func mountSection[T any, PT service.SectionItem[T], P service.ItemPatch[T]](rg *gin.RouterGroup, pages *service.HomePageService, section service.ListSection[T]) {
	base := "/" + section.Path

	rg.POST(base, func(c *gin.Context) {
		var patch P
		if !bindJSON(c, &patch, "invalid "+section.Path+" item") {
			return
		}
		item, err := service.AddItem[T, PT](c.Request.Context(), pages, actorFromContext(c), c.Param("schoolId"), section, patch)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, item)
	})

	rg.PUT(base+"/reorder", func(c *gin.Context) {
		var req dto.ReorderRequest
		if !bindJSON(c, &req, "invalid reorder payload") {
			return
		}
		items, err := service.ReorderItems[T, PT](c.Request.Context(), pages, actorFromContext(c), c.Param("schoolId"), section, req)
		respondSection(c, items, err)
	})

	rg.PUT(base+"/:itemId", func(c *gin.Context) {
		var patch P
		if !bindJSON(c, &patch, "invalid "+section.Path+" item") {
			return
		}
		item, err := service.UpdateItem[T, PT](c.Request.Context(), pages, actorFromContext(c), c.Param("schoolId"), section, c.Param("itemId"), patch)
		respondSection(c, item, err)
	})

	rg.DELETE(base+"/:itemId", func(c *gin.Context) {
		if err := service.RemoveItem(c.Request.Context(), pages, actorFromContext(c), c.Param("schoolId"), section, c.Param("itemId")); err != nil {
			response.Error(c, err)
			return
		}
		response.NoContent(c)
	})
}
