package post

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const StatusPublished = "published"

type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Excerpt    string    `json:"excerpt"`
	Status     string    `json:"status"`
	Image      string    `json:"image"`
	CategoryID *string   `json:"categoryId"`
	CreatedAt  time.Time `json:"createdAt"`

	// read side, joined from the category tree
	CategoryName       *string `json:"categoryName"`
	ParentCategoryID   *string `json:"parentCategoryId"`
	ParentCategoryName *string `json:"parentCategoryName"`
}

var (
	ErrNotFound        = errors.New("post not found")
	ErrUnknownCategory = errors.New("category does not exist")
)

type CreateRequest struct {
	Title      string  `json:"title" binding:"required,max=300"`
	Content    string  `json:"content"`
	Excerpt    string  `json:"excerpt" binding:"max=1000"`
	Status     string  `json:"status" binding:"omitempty,max=32"`
	Image      string  `json:"image"`
	CategoryID *string `json:"categoryId"`
}

// UpdateRequest is partial. A nil CategoryID keeps the category; an empty
// string clears it.
type UpdateRequest struct {
	Title      *string `json:"title" binding:"omitempty,min=1,max=300"`
	Content    *string `json:"content"`
	Excerpt    *string `json:"excerpt" binding:"omitempty,max=1000"`
	Status     *string `json:"status" binding:"omitempty,max=32"`
	Image      *string `json:"image"`
	CategoryID *string `json:"categoryId"`
}

func NewFromCreateRequest(req CreateRequest) Post {
	status := req.Status
	if status == "" {
		status = StatusPublished
	}

	return Post{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		Status:     status,
		Image:      req.Image,
		CategoryID: NormalizeCategoryID(req.CategoryID),
		CreatedAt:  time.Now().UTC(),
	}
}

func ApplyUpdate(existing Post, req UpdateRequest) Post {
	next := existing
	if req.Title != nil {
		next.Title = *req.Title
	}
	if req.Content != nil {
		next.Content = *req.Content
	}
	if req.Excerpt != nil {
		next.Excerpt = *req.Excerpt
	}
	if req.Status != nil {
		next.Status = *req.Status
	}
	if req.Image != nil {
		next.Image = *req.Image
	}
	if req.CategoryID != nil {
		next.CategoryID = NormalizeCategoryID(req.CategoryID)
	}
	return next
}

func NormalizeCategoryID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}
