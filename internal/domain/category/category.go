package category

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrNotFound       = errors.New("category not found")
	ErrParentNotFound = errors.New("parent category not found")
	ErrInvalidParent  = errors.New("invalid parent category")
	ErrEmptyName      = errors.New("category name is required")
)

type CreateRequest struct {
	Name     string  `json:"name" binding:"required,max=120"`
	ParentID *string `json:"parentId"`
}

// UpdateRequest follows the partial-update rules of the category API:
// a nil ParentID (absent or JSON null) keeps the current parent and an empty
// string moves the category to the root.
type UpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=120"`
	ParentID *string `json:"parentId"`
}

// NewFromCreateRequest validates the name and builds the row to insert.
// The parent reference is checked by the store inside its transaction.
func NewFromCreateRequest(req CreateRequest) (Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Category{}, ErrEmptyName
	}

	return Category{
		ID:        uuid.NewString(),
		Name:      name,
		ParentID:  normalizeParent(req.ParentID),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ApplyUpdate returns the row as it would look after req. The second result
// reports whether the parent reference changed and needs validating.
func ApplyUpdate(existing Category, req UpdateRequest) (Category, bool) {
	next := existing

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			next.Name = name
		}
	}

	if req.ParentID == nil {
		return next, false
	}

	next.ParentID = normalizeParent(req.ParentID)
	return next, !sameParent(existing.ParentID, next.ParentID)
}

func normalizeParent(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ParentLookup resolves a category id to its parent id. ok is false when the
// id does not exist.
type ParentLookup func(id string) (parentID *string, ok bool)

// CheckParent validates moving id under proposed. A nil proposed parent is
// always valid. The ancestor chain of proposed is walked up to a root; finding
// id on it means the move would close a cycle.
func CheckParent(id string, proposed *string, parentOf ParentLookup) error {
	if proposed == nil {
		return nil
	}
	if *proposed == id {
		return ErrInvalidParent
	}

	if _, ok := parentOf(*proposed); !ok {
		return ErrParentNotFound
	}

	seen := map[string]struct{}{}
	cur := *proposed
	for {
		if cur == id {
			return ErrInvalidParent
		}
		if _, dup := seen[cur]; dup {
			// stored data already loops; refuse to attach anything to it
			return ErrInvalidParent
		}
		seen[cur] = struct{}{}

		parent, ok := parentOf(cur)
		if !ok || parent == nil {
			return nil
		}
		cur = *parent
	}
}

// ParentIndex turns a row set into a ParentLookup.
func ParentIndex(rows []Category) ParentLookup {
	idx := make(map[string]*string, len(rows))
	for _, r := range rows {
		idx[r.ID] = r.ParentID
	}
	return func(id string) (*string, bool) {
		p, ok := idx[id]
		return p, ok
	}
}
