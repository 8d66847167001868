package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rulercosta/neuralwired/internal/content"
	"github.com/rulercosta/neuralwired/internal/db"
	"gorm.io/gorm"
)

// PageService owns the lifecycle of pages and blog posts.
type PageService struct {
	db            *gorm.DB
	now           func() time.Time
	excerptLength int
}

// PageInput holds the fields accepted when creating a page.
type PageInput struct {
	Title    string
	Content  string
	Format   string
	IsBlog   bool
	Featured bool
	// Excerpt is used verbatim when non-blank; otherwise posts derive one.
	Excerpt *string
}

// PageUpdate holds a partial update. Nil fields keep their stored value.
type PageUpdate struct {
	Title    *string
	Content  *string
	Format   string
	IsBlog   *bool
	Featured *bool
	// Excerpt, when set, wins over derivation. An empty string clears it.
	Excerpt *string
}

// PageFilter selects the listing to return.
type PageFilter struct {
	IsBlog       bool
	FeaturedOnly bool
	// Limit caps the number of posts. It is ignored for plain pages.
	Limit int
}

// NewPageService returns a new PageService instance.
func NewPageService(gdb *gorm.DB) *PageService {
	return &PageService{db: gdb, now: time.Now, excerptLength: content.DefaultExcerptLength}
}

// SetClock overrides the time source, mainly for tests.
func (s *PageService) SetClock(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// SetExcerptLength changes the length of derived excerpts.
func (s *PageService) SetExcerptLength(length int) {
	if length <= 0 {
		length = content.DefaultExcerptLength
	}
	s.excerptLength = length
}

// Get fetches a page for a given slug.
func (s *PageService) Get(ctx context.Context, slug string) (*db.Page, error) {
	var page db.Page
	if err := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, storeError("get page", err)
	}
	return &page, nil
}

// List returns plain pages ordered by title, or posts newest first.
func (s *PageService) List(ctx context.Context, filter PageFilter) ([]db.Page, error) {
	query := s.db.WithContext(ctx).Model(&db.Page{}).Where("is_blog = ?", filter.IsBlog)

	if filter.IsBlog {
		if filter.FeaturedOnly {
			query = query.Where("featured = ?", true)
		}
		query = query.Order("published_date desc").Order("id desc")
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
	} else {
		query = query.Order("title asc").Order("id asc")
	}

	pages := make([]db.Page, 0)
	if err := query.Find(&pages).Error; err != nil {
		return nil, storeError("list pages", err)
	}
	return pages, nil
}

// Create validates the input, assigns a unique slug and inserts the page.
func (s *PageService) Create(ctx context.Context, editor Editor, input PageInput) (*db.Page, error) {
	if err := requireEditor(editor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	base := content.Slugify(title)
	if base == "" {
		return nil, ErrInvalidSlug
	}

	body, err := renderBody(input.Content, input.Format)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx)
	slug, err := content.EnsureUniqueSlug(base, s.slugTaken(tx, 0))
	if err != nil {
		return nil, storeError("resolve slug", err)
	}

	excerpt := explicitExcerpt(input.Excerpt)
	if input.IsBlog && excerpt == nil {
		derived := content.ExtractExcerpt(body, s.excerptLength)
		excerpt = &derived
	}

	now := s.now()
	page := db.Page{
		Title:         title,
		Slug:          slug,
		Content:       body,
		IsBlog:        input.IsBlog,
		Excerpt:       excerpt,
		Featured:      input.Featured && input.IsBlog,
		CreatedAt:     now,
		UpdatedAt:     now,
		PublishedDate: now,
	}

	if err := tx.Create(&page).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugConflict
		}
		return nil, storeError("create page", err)
	}
	return &page, nil
}

// Update applies a partial update to the page stored under slug.
//
// A new title re-derives the slug, so the old slug stops resolving. When
// content is supplied for a post without an explicit excerpt, the excerpt is
// regenerated and any hand-written one is replaced.
func (s *PageService) Update(ctx context.Context, editor Editor, slug string, input PageUpdate) (*db.Page, error) {
	if err := requireEditor(editor); err != nil {
		return nil, err
	}
	// 未提供 content 时 format 同样需要合法
	if _, ok := content.NormalizeFormat(input.Format); !ok {
		return nil, ErrInvalidFormat
	}

	tx := s.db.WithContext(ctx)

	var existing db.Page
	if err := tx.Where("slug = ?", strings.TrimSpace(slug)).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, storeError("load page", err)
	}

	updates := map[string]interface{}{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		base := content.Slugify(title)
		if base == "" {
			return nil, ErrInvalidSlug
		}
		updates["title"] = title

		if base != existing.Slug {
			next, err := content.EnsureUniqueSlug(base, s.slugTaken(tx, existing.ID))
			if err != nil {
				return nil, storeError("resolve slug", err)
			}
			if next != existing.Slug {
				updates["slug"] = next
			}
		}
	}

	isBlog := existing.IsBlog
	if input.IsBlog != nil {
		isBlog = *input.IsBlog
		updates["is_blog"] = isBlog
	}

	body := existing.Content
	if input.Content != nil {
		rendered, err := renderBody(*input.Content, input.Format)
		if err != nil {
			return nil, err
		}
		body = rendered
		updates["content"] = body
	}

	switch {
	case input.Excerpt != nil:
		if excerpt := explicitExcerpt(input.Excerpt); excerpt != nil {
			updates["excerpt"] = *excerpt
		} else {
			updates["excerpt"] = nil
		}
	case isBlog && input.Content != nil:
		updates["excerpt"] = content.ExtractExcerpt(body, s.excerptLength)
	case isBlog && !existing.IsBlog && existing.Excerpt == nil:
		updates["excerpt"] = content.ExtractExcerpt(body, s.excerptLength)
	}

	featured := existing.Featured
	if input.Featured != nil {
		featured = *input.Featured
	}
	if !isBlog {
		featured = false
	}
	if featured != existing.Featured || input.Featured != nil {
		updates["featured"] = featured
	}

	updates["updated_at"] = s.now()

	result := tx.Model(&db.Page{}).Where("id = ?", existing.ID).Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, ErrSlugConflict
		}
		return nil, storeError("update page", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrPageNotFound
	}

	var updated db.Page
	if err := tx.First(&updated, existing.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, storeError("reload page", err)
	}
	return &updated, nil
}

// Delete permanently removes the page stored under slug.
func (s *PageService) Delete(ctx context.Context, editor Editor, slug string) error {
	if err := requireEditor(editor); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).Delete(&db.Page{})
	if result.Error != nil {
		return storeError("delete page", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

// ToggleFeatured flips the featured flag of a blog post.
func (s *PageService) ToggleFeatured(ctx context.Context, editor Editor, slug string) (*db.Page, error) {
	if err := requireEditor(editor); err != nil {
		return nil, err
	}

	page, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !page.IsBlog {
		return nil, ErrFeaturedRequiresBlog
	}

	featured := !page.Featured
	return s.Update(ctx, editor, page.Slug, PageUpdate{Featured: &featured})
}

// slugTaken builds the existence check used for slug resolution. The page
// identified by excludeID does not count as a collision.
func (s *PageService) slugTaken(tx *gorm.DB, excludeID uint) content.SlugExistsFunc {
	return func(candidate string) (bool, error) {
		query := tx.Model(&db.Page{}).Where("slug = ?", candidate)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
}

func renderBody(body, format string) (string, error) {
	normalized, ok := content.NormalizeFormat(format)
	if !ok {
		return "", ErrInvalidFormat
	}
	if normalized == content.FormatMarkdown {
		rendered, err := content.RenderMarkdown(body)
		if err != nil {
			return "", ErrInvalidFormat
		}
		return rendered, nil
	}
	return body, nil
}

// explicitExcerpt returns nil for a missing or blank excerpt.
func explicitExcerpt(excerpt *string) *string {
	if excerpt == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*excerpt)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
