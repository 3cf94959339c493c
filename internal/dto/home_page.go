package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// assign copies *v into dst when the field was present in the request body.
func assign[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// HomePageContentRequest creates or replaces the whole document. Items
// without an id get one; items without an order keep their list position.
type HomePageContentRequest struct {
	Header            models.Header           `json:"header"`
	Sliders           []models.Slider         `json:"sliders"`
	Statistics        []models.Statistic      `json:"statistics"`
	About             models.About            `json:"about"`
	News              []models.NewsItem       `json:"news"`
	Videos            []models.Video          `json:"videos"`
	Gallery           []models.GalleryItem    `json:"gallery"`
	Programs          []models.Program        `json:"programs"`
	WhyChooseUs       []models.Feature        `json:"why_choose_us"`
	Testimonials      []models.Testimonial    `json:"testimonials"`
	SectionVisibility *SectionVisibilityPatch `json:"section_visibility"`
	SEO               models.SEO              `json:"seo"`

	orders map[string][]bool
}

// UnmarshalJSON records which list items carried an order so that an
// explicit 0 is kept.
func (r *HomePageContentRequest) UnmarshalJSON(b []byte) error {
	type plain HomePageContentRequest
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	p.orders = make(map[string][]bool)
	for name, raw := range fields {
		var items []map[string]json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			continue
		}
		present := make([]bool, len(items))
		for i, item := range items {
			v, ok := item["order"]
			present[i] = ok && string(v) != "null"
		}
		p.orders[name] = present
	}
	*r = HomePageContentRequest(p)
	return nil
}

// HasOrder reports whether item i of the list field was sent with an order.
func (r HomePageContentRequest) HasOrder(field string, i int) bool {
	present := r.orders[field]
	return i < len(present) && present[i]
}

type SocialLinksPatch struct {
	Facebook  *string `json:"facebook"`
	Instagram *string `json:"instagram"`
	Twitter   *string `json:"twitter"`
	YouTube   *string `json:"youtube"`
	LinkedIn  *string `json:"linkedin"`
}

func (p SocialLinksPatch) ApplyTo(s *models.SocialLinks) {
	assign(&s.Facebook, p.Facebook)
	assign(&s.Instagram, p.Instagram)
	assign(&s.Twitter, p.Twitter)
	assign(&s.YouTube, p.YouTube)
	assign(&s.LinkedIn, p.LinkedIn)
}

// HeaderPatch merges into the header; social_links merges key by key.
type HeaderPatch struct {
	SchoolName  *string           `json:"school_name"`
	Tagline     *string           `json:"tagline"`
	LogoURL     *string           `json:"logo_url"`
	Phone       *string           `json:"phone"`
	Email       *string           `json:"email" validate:"omitempty,email"`
	Address     *string           `json:"address"`
	SocialLinks *SocialLinksPatch `json:"social_links"`
}

func (p HeaderPatch) ApplyTo(h *models.Header) {
	assign(&h.SchoolName, p.SchoolName)
	assign(&h.Tagline, p.Tagline)
	assign(&h.LogoURL, p.LogoURL)
	assign(&h.Phone, p.Phone)
	assign(&h.Email, p.Email)
	assign(&h.Address, p.Address)
	if p.SocialLinks != nil {
		p.SocialLinks.ApplyTo(&h.SocialLinks)
	}
}

type AboutPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Mission     *string   `json:"mission"`
	Vision      *string   `json:"vision"`
	ImageURL    *string   `json:"image_url"`
	Highlights  *[]string `json:"highlights"`
}

func (p AboutPatch) ApplyTo(a *models.About) {
	assign(&a.Title, p.Title)
	assign(&a.Description, p.Description)
	assign(&a.Mission, p.Mission)
	assign(&a.Vision, p.Vision)
	assign(&a.ImageURL, p.ImageURL)
	assign(&a.Highlights, p.Highlights)
}

type SectionVisibilityPatch struct {
	Sliders      *bool `json:"sliders"`
	Statistics   *bool `json:"statistics"`
	About        *bool `json:"about"`
	News         *bool `json:"news"`
	Videos       *bool `json:"videos"`
	Gallery      *bool `json:"gallery"`
	Programs     *bool `json:"programs"`
	WhyChooseUs  *bool `json:"why_choose_us"`
	Testimonials *bool `json:"testimonials"`
}

func (p SectionVisibilityPatch) ApplyTo(v *models.SectionVisibility) {
	assign(&v.Sliders, p.Sliders)
	assign(&v.Statistics, p.Statistics)
	assign(&v.About, p.About)
	assign(&v.News, p.News)
	assign(&v.Videos, p.Videos)
	assign(&v.Gallery, p.Gallery)
	assign(&v.Programs, p.Programs)
	assign(&v.WhyChooseUs, p.WhyChooseUs)
	assign(&v.Testimonials, p.Testimonials)
}

type SEOPatch struct {
	MetaTitle       *string   `json:"meta_title"`
	MetaDescription *string   `json:"meta_description"`
	Keywords        *[]string `json:"keywords"`
	OGImageURL      *string   `json:"og_image_url"`
}

func (p SEOPatch) ApplyTo(s *models.SEO) {
	assign(&s.MetaTitle, p.MetaTitle)
	assign(&s.MetaDescription, p.MetaDescription)
	assign(&s.Keywords, p.Keywords)
	assign(&s.OGImageURL, p.OGImageURL)
}

// ReorderRequest lists item ids in their new order.
type ReorderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// List section patches. The same patch creates an item (applied to a zero
// value) and updates one (applied to the stored item).

type SliderPatch struct {
	Order    *int    `json:"order" validate:"omitempty,gte=0"`
	Title    *string `json:"title"`
	Subtitle *string `json:"subtitle"`
	ImageURL *string `json:"image_url"`
	LinkURL  *string `json:"link_url"`
	Active   *bool   `json:"active"`
}

func (p SliderPatch) OrderValue() *int { return p.Order }
func (p SliderPatch) ApplyTo(s *models.Slider) {
	assign(&s.Title, p.Title)
	assign(&s.Subtitle, p.Subtitle)
	assign(&s.ImageURL, p.ImageURL)
	assign(&s.LinkURL, p.LinkURL)
	assign(&s.Active, p.Active)
}

type StatisticPatch struct {
	Order *int    `json:"order" validate:"omitempty,gte=0"`
	Label *string `json:"label"`
	Value *string `json:"value"`
	Icon  *string `json:"icon"`
}

func (p StatisticPatch) OrderValue() *int { return p.Order }
func (p StatisticPatch) ApplyTo(s *models.Statistic) {
	assign(&s.Label, p.Label)
	assign(&s.Value, p.Value)
	assign(&s.Icon, p.Icon)
}

type NewsPatch struct {
	Order       *int       `json:"order" validate:"omitempty,gte=0"`
	Title       *string    `json:"title"`
	Summary     *string    `json:"summary"`
	Content     *string    `json:"content"`
	ImageURL    *string    `json:"image_url"`
	PublishedAt *time.Time `json:"published_at"`
}

func (p NewsPatch) OrderValue() *int { return p.Order }
func (p NewsPatch) ApplyTo(n *models.NewsItem) {
	assign(&n.Title, p.Title)
	assign(&n.Summary, p.Summary)
	assign(&n.Content, p.Content)
	assign(&n.ImageURL, p.ImageURL)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		n.PublishedAt = &t
	}
}

type VideoPatch struct {
	Order        *int    `json:"order" validate:"omitempty,gte=0"`
	Title        *string `json:"title"`
	URL          *string `json:"url" validate:"omitempty,url"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

func (p VideoPatch) OrderValue() *int { return p.Order }
func (p VideoPatch) ApplyTo(v *models.Video) {
	assign(&v.Title, p.Title)
	assign(&v.URL, p.URL)
	assign(&v.ThumbnailURL, p.ThumbnailURL)
}

type GalleryPatch struct {
	Order    *int    `json:"order" validate:"omitempty,gte=0"`
	Title    *string `json:"title"`
	ImageURL *string `json:"image_url"`
	Category *string `json:"category"`
}

func (p GalleryPatch) OrderValue() *int { return p.Order }
func (p GalleryPatch) ApplyTo(g *models.GalleryItem) {
	assign(&g.Title, p.Title)
	assign(&g.ImageURL, p.ImageURL)
	assign(&g.Category, p.Category)
}

type ProgramPatch struct {
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	Icon        *string `json:"icon"`
}

func (p ProgramPatch) OrderValue() *int { return p.Order }
func (p ProgramPatch) ApplyTo(pr *models.Program) {
	assign(&pr.Title, p.Title)
	assign(&pr.Description, p.Description)
	assign(&pr.ImageURL, p.ImageURL)
	assign(&pr.Icon, p.Icon)
}

type FeaturePatch struct {
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

func (p FeaturePatch) OrderValue() *int { return p.Order }
func (p FeaturePatch) ApplyTo(f *models.Feature) {
	assign(&f.Title, p.Title)
	assign(&f.Description, p.Description)
	assign(&f.Icon, p.Icon)
}

type TestimonialPatch struct {
	Order    *int    `json:"order" validate:"omitempty,gte=0"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Message  *string `json:"message"`
	PhotoURL *string `json:"photo_url"`
	Rating   *int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

func (p TestimonialPatch) OrderValue() *int { return p.Order }
func (p TestimonialPatch) ApplyTo(t *models.Testimonial) {
	assign(&t.Name, p.Name)
	assign(&t.Role, p.Role)
	assign(&t.Message, p.Message)
	assign(&t.PhotoURL, p.PhotoURL)
	assign(&t.Rating, p.Rating)
}

// UploadResult lists the public URLs of stored files.
type UploadResult struct {
	Files []UploadedFile `json:"files"`
}

type UploadedFile struct {
	OriginalName string `json:"original_name"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	Resized      bool   `json:"resized"`
}
