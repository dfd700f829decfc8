package memory

import (
	"sync"

	"github.com/geocoder89/farmhub/internal/domain/birdnest"
	"github.com/geocoder89/farmhub/internal/domain/category"
	"github.com/geocoder89/farmhub/internal/domain/order"
	"github.com/geocoder89/farmhub/internal/domain/post"
	"github.com/geocoder89/farmhub/internal/domain/product"
	"github.com/geocoder89/farmhub/internal/domain/user"
)

// Store keeps every table behind one lock, so each multi-step operation is
// atomic the way a single database transaction is.
type Store struct {
	mu sync.RWMutex

	users      map[string]user.User
	categories map[string]category.Category
	posts      map[string]post.Post
	products   map[string]product.Product
	orders     []order.Order
	nests      map[string][]birdnest.Nest
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]user.User),
		categories: make(map[string]category.Category),
		posts:      make(map[string]post.Post),
		products:   make(map[string]product.Product),
		nests:      make(map[string][]birdnest.Nest),
	}
}

func (s *Store) Users() *UsersRepo           { return &UsersRepo{s: s} }
func (s *Store) Categories() *CategoriesRepo { return &CategoriesRepo{s: s} }
func (s *Store) Posts() *PostsRepo           { return &PostsRepo{s: s} }
func (s *Store) Products() *ProductsRepo     { return &ProductsRepo{s: s} }
func (s *Store) Orders() *OrdersRepo         { return &OrdersRepo{s: s} }
func (s *Store) BirdNests() *BirdNestsRepo   { return &BirdNestsRepo{s: s} }

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
