package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type fakeHomePageRepo struct {
	docs  map[string]models.HomePageContent
	reads int
}

func (f *fakeHomePageRepo) FindBySchool(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	f.reads++
	doc, ok := f.docs[schoolID]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return cloneDoc(doc), nil
}

// Save assigns an ObjectID on the first write the way an upsert does.
func (f *fakeHomePageRepo) Save(ctx context.Context, content *models.HomePageContent) error {
	if stored, ok := f.docs[content.SchoolID]; ok && stored.ID != content.ID {
		return errors.New("replacement changed _id")
	}
	if content.ID.IsZero() {
		content.ID = primitive.NewObjectID()
	}
	f.docs[content.SchoolID] = *cloneDoc(*content)
	return nil
}

// SetField round-trips value through JSON into the named field, which
// mirrors how a $set replaces the whole sub-document.
func (f *fakeHomePageRepo) SetField(ctx context.Context, schoolID, field string, value interface{}, updatedBy string) error {
	doc, ok := f.docs[schoolID]
	if !ok {
		return repository.ErrDocumentNotFound
	}
	raw, _ := json.Marshal(doc)
	var generic map[string]json.RawMessage
	_ = json.Unmarshal(raw, &generic)
	generic[field], _ = json.Marshal(value)
	raw, _ = json.Marshal(generic)
	var updated models.HomePageContent
	_ = json.Unmarshal(raw, &updated)
	updated.UpdatedBy = updatedBy
	f.docs[schoolID] = updated
	return nil
}

func (f *fakeHomePageRepo) PullItem(ctx context.Context, schoolID, field, itemID, updatedBy string) (bool, error) {
	doc, ok := f.docs[schoolID]
	if !ok || field != "sliders" {
		return false, nil
	}
	kept := doc.Sliders[:0:0]
	for _, s := range doc.Sliders {
		if s.ID != itemID {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(doc.Sliders) {
		return false, nil
	}
	doc.Sliders = kept
	f.docs[schoolID] = doc
	return true, nil
}

func (f *fakeHomePageRepo) Delete(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	doc, ok := f.docs[schoolID]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	delete(f.docs, schoolID)
	return &doc, nil
}

func cloneDoc(doc models.HomePageContent) *models.HomePageContent {
	raw, _ := json.Marshal(doc)
	var out models.HomePageContent
	_ = json.Unmarshal(raw, &out)
	return &out
}

type memoryCache struct {
	entries map[string][]byte
	deletes []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
		m.deletes = append(m.deletes, k)
	}
	return nil
}

type memoryStore struct {
	files map[string][]byte
}

func (m *memoryStore) SaveStream(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.files[name] = data
	return name, nil
}

func (m *memoryStore) URL(name string) string {
	return "/uploads/" + name
}

type homePageFixture struct {
	svc   *HomePageService
	repo  *fakeHomePageRepo
	cache *memoryCache
	store *memoryStore
}

func newHomePageFixture() *homePageFixture {
	repo := &fakeHomePageRepo{docs: map[string]models.HomePageContent{}}
	cache := &memoryCache{entries: map[string][]byte{}}
	store := &memoryStore{files: map[string][]byte{}}
	cacheSvc := NewCacheService(cache, nil, time.Minute, nil, true)
	svc := NewHomePageService(repo, cacheSvc, store, nil, HomePageOptions{MaxUploadBytes: 1 << 20, MaxImageWidth: 100}, nil, nil)
	n := 0
	svc.newID = func() string {
		n++
		return "item-" + string(rune('0'+n))
	}
	return &homePageFixture{svc: svc, repo: repo, cache: cache, store: store}
}

func TestHomePageReplaceAssignsIDsAndCaches(t *testing.T) {
	f := newHomePageFixture()
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "school-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	doc, err := f.svc.Replace(ctx, schoolAdminActor, "school-1", dto.HomePageContentRequest{
		Header:  models.Header{SchoolName: "SMA Negeri 1"},
		Sliders: []models.Slider{{Title: "Welcome"}, {Title: "Campus"}},
	})
	require.NoError(t, err)
	require.Len(t, doc.Sliders, 2)
	assert.Equal(t, "item-1", doc.Sliders[0].ID)
	assert.Equal(t, 1, doc.Sliders[1].Order)
	assert.True(t, doc.SectionVisibility.News)
	assert.NotNil(t, doc.News)

	first, err := f.svc.Get(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, "SMA Negeri 1", first.Header.SchoolName)
	reads := f.repo.reads
	_, err = f.svc.Get(ctx, "school-1")
	require.NoError(t, err)
	assert.Equal(t, reads, f.repo.reads, "second read is served from cache")

	_, err = f.svc.UpdateHeader(ctx, schoolAdminActor, "school-1", dto.HeaderPatch{Tagline: strPtr("Unggul")})
	require.NoError(t, err)
	assert.NotContains(t, f.cache.entries, "home_page:school-1")
}

func TestHomePageReplaceKeepsDocumentID(t *testing.T) {
	f := newHomePageFixture()
	ctx := context.Background()

	first, err := f.svc.Replace(ctx, schoolAdminActor, "school-1", dto.HomePageContentRequest{
		Header: models.Header{SchoolName: "SMA Negeri 1"},
	})
	require.NoError(t, err)
	require.False(t, first.ID.IsZero())

	second, err := f.svc.Replace(ctx, schoolAdminActor, "school-1", dto.HomePageContentRequest{
		Header: models.Header{SchoolName: "SMA Negeri 1 Jakarta"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "SMA Negeri 1 Jakarta", f.repo.docs["school-1"].Header.SchoolName)
}

func TestHomePageReplaceMergesPartialVisibility(t *testing.T) {
	f := newHomePageFixture()
	hidden := false

	doc, err := f.svc.Replace(context.Background(), schoolAdminActor, "school-1", dto.HomePageContentRequest{
		SectionVisibility: &dto.SectionVisibilityPatch{News: &hidden},
	})
	require.NoError(t, err)
	assert.False(t, doc.SectionVisibility.News)
	assert.True(t, doc.SectionVisibility.Sliders)
	assert.True(t, doc.SectionVisibility.Testimonials)
}

func TestHomePageReplaceKeepsExplicitZeroOrder(t *testing.T) {
	f := newHomePageFixture()
	var req dto.HomePageContentRequest
	body := `{"sliders":[{"title":"A","order":5},{"title":"B","order":0},{"title":"C"}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	doc, err := f.svc.Replace(context.Background(), schoolAdminActor, "school-1", req)
	require.NoError(t, err)
	require.Len(t, doc.Sliders, 3)
	assert.Equal(t, "B", doc.Sliders[0].Title)
	assert.Equal(t, 0, doc.Sliders[0].Order)
	assert.Equal(t, "C", doc.Sliders[1].Title)
	assert.Equal(t, 2, doc.Sliders[1].Order)
	assert.Equal(t, "A", doc.Sliders[2].Title)
	assert.Equal(t, 5, doc.Sliders[2].Order)
}

func TestHomePageHeaderPatchKeepsSiblings(t *testing.T) {
	f := newHomePageFixture()
	ctx := context.Background()
	_, err := f.svc.Replace(ctx, schoolAdminActor, "school-1", dto.HomePageContentRequest{
		Header: models.Header{
			SchoolName:  "SMA Negeri 1",
			Phone:       "021-555",
			SocialLinks: models.SocialLinks{Facebook: "fb/sma1", Instagram: "ig/sma1"},
		},
	})
	require.NoError(t, err)

	header, err := f.svc.UpdateHeader(ctx, schoolAdminActor, "school-1", dto.HeaderPatch{
		Tagline:     strPtr("Unggul dan berkarakter"),
		SocialLinks: &dto.SocialLinksPatch{Instagram: strPtr("ig/sman1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "SMA Negeri 1", header.SchoolName)
	assert.Equal(t, "021-555", header.Phone)
	assert.Equal(t, "fb/sma1", header.SocialLinks.Facebook)
	assert.Equal(t, "ig/sman1", header.SocialLinks.Instagram)

	stored := f.repo.docs["school-1"]
	assert.Equal(t, "Unggul dan berkarakter", stored.Header.Tagline)
	assert.Equal(t, "admin-1", stored.UpdatedBy)

	_, err = f.svc.UpdateHeader(ctx, schoolAdminActor, "school-1", dto.HeaderPatch{Email: strPtr("not-an-email")})
	assert.Contains(t, appErrors.FromError(err).Details, "email")
}

func TestHomePageGuards(t *testing.T) {
	f := newHomePageFixture()
	ctx := context.Background()

	other := Actor{UserID: "admin-2", Role: models.RoleSchoolAdmin, SchoolID: "school-2"}
	_, err := f.svc.Replace(ctx, other, "school-1", dto.HomePageContentRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	teacher := Actor{UserID: "t-1", Role: models.RoleTeacher, SchoolID: "school-1"}
	err = f.svc.Delete(ctx, teacher, "school-1")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	super := Actor{UserID: "root", Role: models.RoleSuperAdmin}
	_, err = f.svc.Replace(ctx, super, "school-1", dto.HomePageContentRequest{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, super, "school-1"))
	err = f.svc.Delete(ctx, super, "school-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = f.svc.UpdateSEO(ctx, super, "school-1", dto.SEOPatch{MetaTitle: strPtr("x")})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHomePageListSectionLifecycle(t *testing.T) {
	f := newHomePageFixture()
	ctx := context.Background()
	_, err := f.svc.Replace(ctx, schoolAdminActor, "school-1", dto.HomePageContentRequest{
		Sliders: []models.Slider{{Title: "A"}, {Title: "B"}},
	})
	require.NoError(t, err)

	added, err := AddItem(ctx, f.svc, schoolAdminActor, "school-1", SliderSection, dto.SliderPatch{Title: strPtr("C")})
	require.NoError(t, err)
	assert.Equal(t, "item-3", added.ID)
	assert.Equal(t, 2, added.Order)

	updated, err := UpdateItem(ctx, f.svc, schoolAdminActor, "school-1", SliderSection, "item-2", dto.SliderPatch{Subtitle: strPtr("second")})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Title)
	assert.Equal(t, "second", updated.Subtitle)

	_, err = UpdateItem(ctx, f.svc, schoolAdminActor, "school-1", SliderSection, "missing", dto.SliderPatch{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, RemoveItem(ctx, f.svc, schoolAdminActor, "school-1", SliderSection, "item-2"))
	sliders := f.repo.docs["school-1"].Sliders
	require.Len(t, sliders, 2)
	assert.Equal(t, "A", sliders[0].Title)
	assert.Equal(t, "C", sliders[1].Title)

	err = RemoveItem(ctx, f.svc, schoolAdminActor, "school-1", SliderSection, "item-2")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	reordered, err := ReorderItems(ctx, f.svc, schoolAdminActor, "school-1", SliderSection, dto.ReorderRequest{IDs: []string{"item-3", "item-1"}})
	require.NoError(t, err)
	assert.Equal(t, "C", reordered[0].Title)
	assert.Equal(t, 1, reordered[1].Order)

	_, err = ReorderItems(ctx, f.svc, schoolAdminActor, "school-1", SliderSection, dto.ReorderRequest{IDs: []string{"item-3", "item-3"}})
	assert.Contains(t, appErrors.FromError(err).Details, "ids[1]")
}

func multipartFiles(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	return form.File["files"]
}

func TestHomePageUploadDownscalesWideImages(t *testing.T) {
	f := newHomePageFixture()
	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, imaging.New(300, 60, color.White), imaging.PNG))

	result, err := f.svc.Upload(context.Background(), schoolAdminActor, "school-1", multipartFiles(t, map[string][]byte{"banner.png": png.Bytes()}))
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.True(t, result.Files[0].Resized)
	assert.Contains(t, result.Files[0].URL, "/uploads/home-page/")
	assert.Equal(t, "banner.png", result.Files[0].OriginalName)

	require.Len(t, f.store.files, 1)
	for _, data := range f.store.files {
		img, err := imaging.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 100, img.Bounds().Dx())
	}

	_, err = f.svc.Upload(context.Background(), schoolAdminActor, "school-1", multipartFiles(t, map[string][]byte{"run.exe": []byte("MZ")}))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Upload(context.Background(), schoolAdminActor, "school-1", multipartFiles(t, map[string][]byte{"big.pdf": make([]byte, 2<<20)}))
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)
}
