package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

// ListSection describes one ordered list of the home page document.
type ListSection[T any] struct {
	Field string // document field
	Path  string // URL segment
	items func(*models.HomePageContent) *[]T
}

var (
	SliderSection = ListSection[models.Slider]{Field: "sliders", Path: "sliders",
		items: func(c *models.HomePageContent) *[]models.Slider { return &c.Sliders }}
	StatisticSection = ListSection[models.Statistic]{Field: "statistics", Path: "statistics",
		items: func(c *models.HomePageContent) *[]models.Statistic { return &c.Statistics }}
	NewsSection = ListSection[models.NewsItem]{Field: "news", Path: "news",
		items: func(c *models.HomePageContent) *[]models.NewsItem { return &c.News }}
	VideoSection = ListSection[models.Video]{Field: "videos", Path: "videos",
		items: func(c *models.HomePageContent) *[]models.Video { return &c.Videos }}
	GallerySection = ListSection[models.GalleryItem]{Field: "gallery", Path: "gallery",
		items: func(c *models.HomePageContent) *[]models.GalleryItem { return &c.Gallery }}
	ProgramSection = ListSection[models.Program]{Field: "programs", Path: "programs",
		items: func(c *models.HomePageContent) *[]models.Program { return &c.Programs }}
	FeatureSection = ListSection[models.Feature]{Field: "why_choose_us", Path: "why-choose-us",
		items: func(c *models.HomePageContent) *[]models.Feature { return &c.WhyChooseUs }}
	TestimonialSection = ListSection[models.Testimonial]{Field: "testimonials", Path: "testimonials",
		items: func(c *models.HomePageContent) *[]models.Testimonial { return &c.Testimonials }}
)

// SectionItem is implemented by pointers to list section items.
type SectionItem[T any] interface {
	*T
	ItemID() string
	OrderIndex() int
	Identify(id string, order int)
	SetOrder(order int)
}

// ItemPatch is a partial item payload.
type ItemPatch[T any] interface {
	OrderValue() *int
	ApplyTo(*T)
}

// AddItem appends a new item to a section. Without an explicit order it
// goes after the current last item.
func AddItem[T any, PT SectionItem[T], P ItemPatch[T]](ctx context.Context, s *HomePageService, actor Actor, schoolID string, section ListSection[T], patch P) (*T, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Check(patch, "invalid "+section.Path+" item"); err != nil {
		return nil, err
	}
	content, err := s.load(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	list := section.items(content)

	var item T
	patch.ApplyTo(&item)
	order := 0
	for i := range *list {
		if o := PT(&(*list)[i]).OrderIndex(); o >= order {
			order = o + 1
		}
	}
	if o := patch.OrderValue(); o != nil {
		order = *o
	}
	id := s.newID()
	PT(&item).Identify(id, order)
	*list = append(*list, item)
	sortItems[T, PT](*list)

	if err := s.setField(ctx, actor, schoolID, section.Field, *list); err != nil {
		return nil, err
	}
	for i := range *list {
		if PT(&(*list)[i]).ItemID() == id {
			return &(*list)[i], nil
		}
	}
	return &item, nil
}

// UpdateItem merges patch into the item with itemID.
func UpdateItem[T any, PT SectionItem[T], P ItemPatch[T]](ctx context.Context, s *HomePageService, actor Actor, schoolID string, section ListSection[T], itemID string, patch P) (*T, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Check(patch, "invalid "+section.Path+" item"); err != nil {
		return nil, err
	}
	content, err := s.load(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	list := section.items(content)

	idx := indexOf[T, PT](*list, itemID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s item not found", section.Path))
	}
	patch.ApplyTo(&(*list)[idx])
	if o := patch.OrderValue(); o != nil {
		PT(&(*list)[idx]).SetOrder(*o)
		sortItems[T, PT](*list)
		idx = indexOf[T, PT](*list, itemID)
	}

	if err := s.setField(ctx, actor, schoolID, section.Field, *list); err != nil {
		return nil, err
	}
	return &(*list)[idx], nil
}

// RemoveItem pulls exactly one item; the rest keep their order.
func RemoveItem[T any](ctx context.Context, s *HomePageService, actor Actor, schoolID string, section ListSection[T], itemID string) error {
	if err := s.authorize(actor, schoolID); err != nil {
		return err
	}
	removed, err := s.repo.PullItem(ctx, schoolID, section.Field, itemID, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove home page item")
	}
	if !removed {
		if _, err := s.load(ctx, schoolID); err != nil {
			return err
		}
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s item not found", section.Path))
	}
	s.invalidate(ctx, schoolID)
	return nil
}

// ReorderItems renumbers a section following ids, which must name every
// item exactly once.
func ReorderItems[T any, PT SectionItem[T]](ctx context.Context, s *HomePageService, actor Actor, schoolID string, section ListSection[T], req dto.ReorderRequest) ([]T, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid reorder payload"); err != nil {
		return nil, err
	}
	content, err := s.load(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	list := section.items(content)

	if len(req.IDs) != len(*list) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid reorder payload").
			WithDetails(map[string]string{"ids": fmt.Sprintf("expected %d ids, got %d", len(*list), len(req.IDs))})
	}
	reordered := make([]T, 0, len(*list))
	used := make(map[string]struct{}, len(req.IDs))
	for i, id := range req.IDs {
		if _, dup := used[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid reorder payload").
				WithDetails(map[string]string{fmt.Sprintf("ids[%d]", i): "duplicate id"})
		}
		used[id] = struct{}{}
		idx := indexOf[T, PT](*list, id)
		if idx < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid reorder payload").
				WithDetails(map[string]string{fmt.Sprintf("ids[%d]", i): "unknown id"})
		}
		item := (*list)[idx]
		PT(&item).SetOrder(i)
		reordered = append(reordered, item)
	}

	if err := s.setField(ctx, actor, schoolID, section.Field, reordered); err != nil {
		return nil, err
	}
	return reordered, nil
}

func indexOf[T any, PT SectionItem[T]](items []T, id string) int {
	for i := range items {
		if PT(&items[i]).ItemID() == id {
			return i
		}
	}
	return -1
}

func sortItems[T any, PT SectionItem[T]](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return PT(&items[i]).OrderIndex() < PT(&items[j]).OrderIndex()
	})
}

// identifyAll gives every item an id and, when it was sent without an order,
// an order matching its position. A nil list becomes empty.
func identifyAll[T any, PT SectionItem[T]](items []T, hasOrder func(i int) bool, newID func() string) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		p := PT(&out[i])
		id := p.ItemID()
		if id == "" {
			id = newID()
		}
		order := p.OrderIndex()
		if order == 0 && !hasOrder(i) {
			order = i
		}
		p.Identify(id, order)
	}
	sortItems[T, PT](out)
	return out
}
