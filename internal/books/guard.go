package books

import (
	"context"

	"booktracker/internal/auth"
)

// Guard scopes every book operation to the requesting identity. Reads and
// writes of a book owned by someone else fail with ErrForbidden; a book
// that does not exist fails with ErrNotFound. Listings only ever see the
// requester's own books.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Create stores a new book owned by who.
func (g *Guard) Create(ctx context.Context, who *auth.Identity, in Input) (*Book, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	b := &Book{
		Title:            in.Title,
		Author:           in.Author,
		ReadingStartDate: in.ReadingStartDate,
		ReadingEndDate:   in.ReadingEndDate,
		OwnerID:          who.ID,
	}
	if err := g.store.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (g *Guard) Get(ctx context.Context, who *auth.Identity, id int64) (*Book, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}
	b, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != who.ID {
		return nil, ErrForbidden
	}
	return b, nil
}

// Update replaces title, author and reading dates. The owner is not
// mutable through this path.
func (g *Guard) Update(ctx context.Context, who *auth.Identity, id int64, in Input) (*Book, error) {
	b, err := g.Get(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	b.Title = in.Title
	b.Author = in.Author
	b.ReadingStartDate = in.ReadingStartDate
	b.ReadingEndDate = in.ReadingEndDate
	if err := g.store.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (g *Guard) Delete(ctx context.Context, who *auth.Identity, id int64) error {
	b, err := g.Get(ctx, who, id)
	if err != nil {
		return err
	}
	return g.store.Delete(ctx, b.ID, who.ID)
}

func (g *Guard) List(ctx context.Context, who *auth.Identity, q Query) ([]Book, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}
	return g.store.List(ctx, who.ID, q)
}
