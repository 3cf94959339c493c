package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HomePageContent is the per-school public website document kept in MongoDB.
type HomePageContent struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchoolID          string             `bson:"school_id" json:"school_id"`
	Header            Header             `bson:"header" json:"header"`
	Sliders           []Slider           `bson:"sliders" json:"sliders"`
	Statistics        []Statistic        `bson:"statistics" json:"statistics"`
	About             About              `bson:"about" json:"about"`
	News              []NewsItem         `bson:"news" json:"news"`
	Videos            []Video            `bson:"videos" json:"videos"`
	Gallery           []GalleryItem      `bson:"gallery" json:"gallery"`
	Programs          []Program          `bson:"programs" json:"programs"`
	WhyChooseUs       []Feature          `bson:"why_choose_us" json:"why_choose_us"`
	Testimonials      []Testimonial      `bson:"testimonials" json:"testimonials"`
	SectionVisibility SectionVisibility  `bson:"section_visibility" json:"section_visibility"`
	SEO               SEO                `bson:"seo" json:"seo"`
	UpdatedBy         string             `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

type SocialLinks struct {
	Facebook  string `bson:"facebook" json:"facebook"`
	Instagram string `bson:"instagram" json:"instagram"`
	Twitter   string `bson:"twitter" json:"twitter"`
	YouTube   string `bson:"youtube" json:"youtube"`
	LinkedIn  string `bson:"linkedin" json:"linkedin"`
}

type Header struct {
	SchoolName  string      `bson:"school_name" json:"school_name"`
	Tagline     string      `bson:"tagline" json:"tagline"`
	LogoURL     string      `bson:"logo_url" json:"logo_url"`
	Phone       string      `bson:"phone" json:"phone"`
	Email       string      `bson:"email" json:"email"`
	Address     string      `bson:"address" json:"address"`
	SocialLinks SocialLinks `bson:"social_links" json:"social_links"`
}

type About struct {
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description" json:"description"`
	Mission     string   `bson:"mission" json:"mission"`
	Vision      string   `bson:"vision" json:"vision"`
	ImageURL    string   `bson:"image_url" json:"image_url"`
	Highlights  []string `bson:"highlights" json:"highlights"`
}

type SectionVisibility struct {
	Sliders      bool `bson:"sliders" json:"sliders"`
	Statistics   bool `bson:"statistics" json:"statistics"`
	About        bool `bson:"about" json:"about"`
	News         bool `bson:"news" json:"news"`
	Videos       bool `bson:"videos" json:"videos"`
	Gallery      bool `bson:"gallery" json:"gallery"`
	Programs     bool `bson:"programs" json:"programs"`
	WhyChooseUs  bool `bson:"why_choose_us" json:"why_choose_us"`
	Testimonials bool `bson:"testimonials" json:"testimonials"`
}

// DefaultSectionVisibility shows every section.
func DefaultSectionVisibility() SectionVisibility {
	return SectionVisibility{true, true, true, true, true, true, true, true, true}
}

type SEO struct {
	MetaTitle       string   `bson:"meta_title" json:"meta_title"`
	MetaDescription string   `bson:"meta_description" json:"meta_description"`
	Keywords        []string `bson:"keywords" json:"keywords"`
	OGImageURL      string   `bson:"og_image_url" json:"og_image_url"`
}

// Section items. Each has a server generated ID and an Order within its list.

type Slider struct {
	ID       string `bson:"id" json:"id"`
	Order    int    `bson:"order" json:"order"`
	Title    string `bson:"title" json:"title"`
	Subtitle string `bson:"subtitle" json:"subtitle"`
	ImageURL string `bson:"image_url" json:"image_url"`
	LinkURL  string `bson:"link_url" json:"link_url"`
	Active   bool   `bson:"active" json:"active"`
}

type Statistic struct {
	ID    string `bson:"id" json:"id"`
	Order int    `bson:"order" json:"order"`
	Label string `bson:"label" json:"label"`
	Value string `bson:"value" json:"value"`
	Icon  string `bson:"icon" json:"icon"`
}

type NewsItem struct {
	ID          string     `bson:"id" json:"id"`
	Order       int        `bson:"order" json:"order"`
	Title       string     `bson:"title" json:"title"`
	Summary     string     `bson:"summary" json:"summary"`
	Content     string     `bson:"content" json:"content"`
	ImageURL    string     `bson:"image_url" json:"image_url"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
}

type Video struct {
	ID           string `bson:"id" json:"id"`
	Order        int    `bson:"order" json:"order"`
	Title        string `bson:"title" json:"title"`
	URL          string `bson:"url" json:"url"`
	ThumbnailURL string `bson:"thumbnail_url" json:"thumbnail_url"`
}

type GalleryItem struct {
	ID       string `bson:"id" json:"id"`
	Order    int    `bson:"order" json:"order"`
	Title    string `bson:"title" json:"title"`
	ImageURL string `bson:"image_url" json:"image_url"`
	Category string `bson:"category" json:"category"`
}

type Program struct {
	ID          string `bson:"id" json:"id"`
	Order       int    `bson:"order" json:"order"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	ImageURL    string `bson:"image_url" json:"image_url"`
	Icon        string `bson:"icon" json:"icon"`
}

type Feature struct {
	ID          string `bson:"id" json:"id"`
	Order       int    `bson:"order" json:"order"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Icon        string `bson:"icon" json:"icon"`
}

type Testimonial struct {
	ID       string `bson:"id" json:"id"`
	Order    int    `bson:"order" json:"order"`
	Name     string `bson:"name" json:"name"`
	Role     string `bson:"role" json:"role"`
	Message  string `bson:"message" json:"message"`
	PhotoURL string `bson:"photo_url" json:"photo_url"`
	Rating   int    `bson:"rating" json:"rating"`
}

func (s Slider) ItemID() string                 { return s.ID }
func (s Slider) OrderIndex() int                { return s.Order }
func (s *Slider) Identify(id string, order int) { s.ID, s.Order = id, order }
func (s *Slider) SetOrder(order int)            { s.Order = order }

func (s Statistic) ItemID() string                 { return s.ID }
func (s Statistic) OrderIndex() int                { return s.Order }
func (s *Statistic) Identify(id string, order int) { s.ID, s.Order = id, order }
func (s *Statistic) SetOrder(order int)            { s.Order = order }

func (n NewsItem) ItemID() string                 { return n.ID }
func (n NewsItem) OrderIndex() int                { return n.Order }
func (n *NewsItem) Identify(id string, order int) { n.ID, n.Order = id, order }
func (n *NewsItem) SetOrder(order int)            { n.Order = order }

func (v Video) ItemID() string                 { return v.ID }
func (v Video) OrderIndex() int                { return v.Order }
func (v *Video) Identify(id string, order int) { v.ID, v.Order = id, order }
func (v *Video) SetOrder(order int)            { v.Order = order }

func (g GalleryItem) ItemID() string                 { return g.ID }
func (g GalleryItem) OrderIndex() int                { return g.Order }
func (g *GalleryItem) Identify(id string, order int) { g.ID, g.Order = id, order }
func (g *GalleryItem) SetOrder(order int)            { g.Order = order }

func (p Program) ItemID() string                 { return p.ID }
func (p Program) OrderIndex() int                { return p.Order }
func (p *Program) Identify(id string, order int) { p.ID, p.Order = id, order }
func (p *Program) SetOrder(order int)            { p.Order = order }

func (f Feature) ItemID() string                 { return f.ID }
func (f Feature) OrderIndex() int                { return f.Order }
func (f *Feature) Identify(id string, order int) { f.ID, f.Order = id, order }
func (f *Feature) SetOrder(order int)            { f.Order = order }

func (t Testimonial) ItemID() string                 { return t.ID }
func (t Testimonial) OrderIndex() int                { return t.Order }
func (t *Testimonial) Identify(id string, order int) { t.ID, t.Order = id, order }
func (t *Testimonial) SetOrder(order int)            { t.Order = order }
