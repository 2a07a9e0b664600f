// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package memory

import (
	"context"
	"sort"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/listing"
	"github.com/estatehub/estatehub/pkg/errutil"
)

// ListingRepository implements listing.Repository in memory.
type ListingRepository struct {
	s *Store
}

var _ listing.Repository = (*ListingRepository)(nil)

func listingNotFound(id ulid.ULID) error {
	return oops.Code("LISTING_NOT_FOUND").With("listing_id", id.String()).Wrap(errutil.NotFound("listing not found"))
}

// Create stores a copy of l. The owner must exist.
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[l.OwnerID]; !ok {
		return oops.Code("LISTING_OWNER_MISSING").
			With("owner_id", l.OwnerID.String()).
			Wrap(errutil.NotFound("user not found"))
	}
	r.s.listings[l.ID] = l.Clone()
	return nil
}

// Get retrieves a listing by ID.
func (r *ListingRepository) Get(ctx context.Context, id ulid.ULID) (*listing.Listing, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.listings[id]
	if !ok {
		return nil, listingNotFound(id)
	}
	return l.Clone(), nil
}

// Update replaces the listing if it still exists under the same owner.
func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.listings[l.ID]
	if !ok || current.OwnerID != l.OwnerID {
		return nil, listingNotFound(l.ID)
	}
	next := l.Clone()
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.s.now().UTC()
	r.s.listings[l.ID] = next
	return next.Clone(), nil
}

// Delete removes a listing.
func (r *ListingRepository) Delete(ctx context.Context, id ulid.ULID) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.listings[id]; !ok {
		return listingNotFound(id)
	}
	delete(r.s.listings, id)
	return nil
}

// ListByOwner returns the owner's listings, newest first.
func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*listing.Listing, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*listing.Listing{}
	for _, l := range r.s.listings {
		if l.OwnerID == ownerID {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Compare(out[j].ID) > 0
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
