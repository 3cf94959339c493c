package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/storage"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

const homePageUploadDir = "home-page"

var uploadExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".mp4": {}, ".pdf": {},
}

type homePageRepository interface {
	FindBySchool(ctx context.Context, schoolID string) (*models.HomePageContent, error)
	Save(ctx context.Context, content *models.HomePageContent) error
	SetField(ctx context.Context, schoolID, field string, value interface{}, updatedBy string) error
	PullItem(ctx context.Context, schoolID, field, itemID, updatedBy string) (bool, error)
	Delete(ctx context.Context, schoolID string) (*models.HomePageContent, error)
}

type fileStore interface {
	SaveStream(name string, r io.Reader) (string, error)
	URL(name string) string
}

// HomePageOptions tunes caching and uploads.
type HomePageOptions struct {
	CacheTTL       time.Duration
	MaxUploadBytes int64
	MaxImageWidth  int
}

// HomePageService manages the public website document of each school.
type HomePageService struct {
	repo      homePageRepository
	cache     *CacheService
	store     fileStore
	metrics   *MetricsService
	validator *validation.Validator
	logger    *zap.Logger
	opts      HomePageOptions
	newID     func() string
}

func NewHomePageService(repo homePageRepository, cache *CacheService, store fileStore, metrics *MetricsService, opts HomePageOptions, validate *validation.Validator, logger *zap.Logger) *HomePageService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &HomePageService{
		repo:      repo,
		cache:     cache,
		store:     store,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		opts:      opts,
		newID:     uuid.NewString,
	}
}

func homePageCacheKey(schoolID string) string {
	return "home_page:" + schoolID
}

// Get returns the school's document, served from cache when possible.
func (s *HomePageService) Get(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	var cached models.HomePageContent
	if s.cache.Get(ctx, homePageCacheKey(schoolID), &cached) {
		return &cached, nil
	}
	content, err := s.load(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, homePageCacheKey(schoolID), content, s.opts.CacheTTL)
	return content, nil
}

// Replace creates or overwrites the whole document.
func (s *HomePageService) Replace(ctx context.Context, actor Actor, schoolID string, req dto.HomePageContentRequest) (*models.HomePageContent, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid home page payload"); err != nil {
		return nil, err
	}

	content := &models.HomePageContent{SchoolID: schoolID}
	existing, err := s.repo.FindBySchool(ctx, schoolID)
	switch {
	case err == nil:
		content.ID = existing.ID
		content.CreatedAt = existing.CreatedAt
	case !errors.Is(err, repository.ErrDocumentNotFound):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load home page content")
	}

	content.Header = req.Header
	content.About = req.About
	content.SEO = req.SEO
	content.SectionVisibility = models.DefaultSectionVisibility()
	if req.SectionVisibility != nil {
		req.SectionVisibility.ApplyTo(&content.SectionVisibility)
	}
	ordered := func(field string) func(int) bool {
		return func(i int) bool { return req.HasOrder(field, i) }
	}
	content.Sliders = identifyAll(req.Sliders, ordered(SliderSection.Field), s.newID)
	content.Statistics = identifyAll(req.Statistics, ordered(StatisticSection.Field), s.newID)
	content.News = identifyAll(req.News, ordered(NewsSection.Field), s.newID)
	content.Videos = identifyAll(req.Videos, ordered(VideoSection.Field), s.newID)
	content.Gallery = identifyAll(req.Gallery, ordered(GallerySection.Field), s.newID)
	content.Programs = identifyAll(req.Programs, ordered(ProgramSection.Field), s.newID)
	content.WhyChooseUs = identifyAll(req.WhyChooseUs, ordered(FeatureSection.Field), s.newID)
	content.Testimonials = identifyAll(req.Testimonials, ordered(TestimonialSection.Field), s.newID)
	content.UpdatedBy = actor.UserID

	if err := s.repo.Save(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save home page content")
	}
	s.invalidate(ctx, schoolID)
	s.logger.Info("home page content saved", zap.String("school_id", schoolID), zap.String("user_id", actor.UserID))
	return content, nil
}

func (s *HomePageService) Delete(ctx context.Context, actor Actor, schoolID string) error {
	if err := s.authorize(actor, schoolID); err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, schoolID); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "home page content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete home page content")
	}
	s.invalidate(ctx, schoolID)
	return nil
}

func (s *HomePageService) UpdateHeader(ctx context.Context, actor Actor, schoolID string, patch dto.HeaderPatch) (*models.Header, error) {
	return patchObject(ctx, s, actor, schoolID, "header", patch,
		func(c *models.HomePageContent) *models.Header { return &c.Header })
}

func (s *HomePageService) UpdateAbout(ctx context.Context, actor Actor, schoolID string, patch dto.AboutPatch) (*models.About, error) {
	return patchObject(ctx, s, actor, schoolID, "about", patch,
		func(c *models.HomePageContent) *models.About { return &c.About })
}

func (s *HomePageService) UpdateSectionVisibility(ctx context.Context, actor Actor, schoolID string, patch dto.SectionVisibilityPatch) (*models.SectionVisibility, error) {
	return patchObject(ctx, s, actor, schoolID, "section_visibility", patch,
		func(c *models.HomePageContent) *models.SectionVisibility { return &c.SectionVisibility })
}

func (s *HomePageService) UpdateSEO(ctx context.Context, actor Actor, schoolID string, patch dto.SEOPatch) (*models.SEO, error) {
	return patchObject(ctx, s, actor, schoolID, "seo", patch,
		func(c *models.HomePageContent) *models.SEO { return &c.SEO })
}

// Upload stores files under home-page/ and returns their public URLs.
// Images wider than the configured width are downscaled first.
func (s *HomePageService) Upload(ctx context.Context, actor Actor, schoolID string, files []*multipart.FileHeader) (*dto.UploadResult, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files uploaded").
			WithDetails(map[string]string{"files": "at least one file is required"})
	}
	var total int64
	details := map[string]string{}
	for i, fh := range files {
		total += fh.Size
		if _, ok := uploadExtensions[strings.ToLower(filepath.Ext(fh.Filename))]; !ok {
			details[fmt.Sprintf("files[%d]", i)] = "unsupported file type"
		}
	}
	if total > s.opts.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("uploads are limited to %d bytes", s.opts.MaxUploadBytes))
	}
	if len(details) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid upload").WithDetails(details)
	}

	result := &dto.UploadResult{Files: make([]dto.UploadedFile, 0, len(files))}
	for _, fh := range files {
		stored, err := s.storeFile(fh)
		if err != nil {
			return nil, err
		}
		result.Files = append(result.Files, *stored)
	}
	s.logger.Info("home page files uploaded", zap.String("school_id", schoolID), zap.Int("count", len(result.Files)))
	return result, nil
}

func (s *HomePageService) storeFile(fh *multipart.FileHeader) (*dto.UploadedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	defer src.Close() //nolint:errcheck

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := filepath.Join(homePageUploadDir, fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), s.newID(), ext))

	var body io.Reader = src
	resized := false
	if storage.IsImage(fh.Filename) {
		body, resized, err = storage.Downscale(fh.Filename, src, s.opts.MaxImageWidth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid image").
				WithDetails(map[string]string{"files": fmt.Sprintf("%s could not be decoded", fh.Filename)})
		}
	}

	stored, err := s.store.SaveStream(name, body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	s.metrics.RecordUpload(homePageUploadDir, resized)
	return &dto.UploadedFile{OriginalName: fh.Filename, URL: s.store.URL(stored), Size: fh.Size, Resized: resized}, nil
}

func (s *HomePageService) authorize(actor Actor, schoolID string) error {
	if !actor.CanManageSchool(schoolID) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot manage this school's home page")
	}
	return nil
}

func (s *HomePageService) load(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	content, err := s.repo.FindBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "home page content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load home page content")
	}
	return content, nil
}

// setField writes one top-level field and drops the cached document.
func (s *HomePageService) setField(ctx context.Context, actor Actor, schoolID, field string, value interface{}) error {
	if err := s.repo.SetField(ctx, schoolID, field, value, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "home page content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update home page content")
	}
	s.invalidate(ctx, schoolID)
	return nil
}

func (s *HomePageService) invalidate(ctx context.Context, schoolID string) {
	s.cache.Invalidate(ctx, homePageCacheKey(schoolID))
}

type objectPatch[T any] interface {
	ApplyTo(*T)
}

func patchObject[T any, P objectPatch[T]](ctx context.Context, s *HomePageService, actor Actor, schoolID, field string, patch P, get func(*models.HomePageContent) *T) (*T, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Check(patch, "invalid "+field+" payload"); err != nil {
		return nil, err
	}
	content, err := s.load(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	target := get(content)
	patch.ApplyTo(target)
	if err := s.setField(ctx, actor, schoolID, field, target); err != nil {
		return nil, err
	}
	return target, nil
}
