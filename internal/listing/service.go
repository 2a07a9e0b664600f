// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package listing

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/patch"
	"github.com/estatehub/estatehub/internal/store"
	"github.com/estatehub/estatehub/pkg/errutil"
)

// Draft is the create payload.
type Draft struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Address       string   `json:"address"`
	Type          Type     `json:"type"`
	Bedrooms      int      `json:"bedrooms"`
	Bathrooms     int      `json:"bathrooms"`
	RegularPrice  int64    `json:"regularPrice"`
	DiscountPrice int64    `json:"discountPrice"`
	Offer         bool     `json:"offer"`
	Parking       bool     `json:"parking"`
	Furnished     bool     `json:"furnished"`
	ImageURLs     []string `json:"imageUrls"`
}

// Patch is the update payload. Only present keys are considered.
type Patch struct {
	Name          patch.Field[string]   `json:"name"`
	Description   patch.Field[string]   `json:"description"`
	Address       patch.Field[string]   `json:"address"`
	Type          patch.Field[Type]     `json:"type"`
	Bedrooms      patch.Field[int]      `json:"bedrooms"`
	Bathrooms     patch.Field[int]      `json:"bathrooms"`
	RegularPrice  patch.Field[int64]    `json:"regularPrice"`
	DiscountPrice patch.Field[int64]    `json:"discountPrice"`
	Offer         patch.Field[bool]     `json:"offer"`
	Parking       patch.Field[bool]     `json:"parking"`
	Furnished     patch.Field[bool]     `json:"furnished"`
	ImageURLs     patch.Field[[]string] `json:"imageUrls"`
}

// Service implements listing CRUD with owner checks.
type Service struct {
	repo         Repository
	limits       Limits
	logger       *slog.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) ServiceOption {
	return func(s *Service) {
		s.limits = l
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreTimeout bounds every repository call.
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// NewService creates a Service.
func NewService(repo Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("LISTING_INVALID_CONFIG").Errorf("listing repository is required")
	}
	s := &Service{
		repo:         repo,
		limits:       DefaultLimits,
		logger:       slog.New(slog.DiscardHandler),
		storeTimeout: store.DefaultTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create stores a listing owned by actor.
func (s *Service) Create(ctx context.Context, actor ulid.ULID, d Draft) (*Listing, error) {
	now := s.now().UTC()
	l := &Listing{
		ID:            ulid.Make(),
		OwnerID:       actor,
		Name:          d.Name,
		Description:   d.Description,
		Address:       d.Address,
		Type:          d.Type,
		Bedrooms:      d.Bedrooms,
		Bathrooms:     d.Bathrooms,
		RegularPrice:  d.RegularPrice,
		DiscountPrice: d.DiscountPrice,
		Offer:         d.Offer,
		Parking:       d.Parking,
		Furnished:     d.Furnished,
		ImageURLs:     append([]string(nil), d.ImageURLs...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	l.Normalize()
	if err := s.limits.Validate(l); err != nil {
		return nil, oops.Code("LISTING_INVALID").Wrap(err)
	}

	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Create(sctx, l); err != nil {
		return nil, oops.Code("LISTING_CREATE_FAILED").With("owner_id", actor.String()).Wrap(store.Classify(err, nil))
	}
	s.logger.InfoContext(ctx, "listing created", "listing_id", l.ID.String(), "owner_id", actor.String())
	return l, nil
}

// Get returns a listing. It needs no authentication.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*Listing, error) {
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	l, err := s.repo.Get(sctx, id)
	if err != nil {
		return nil, oops.Code("LISTING_GET_FAILED").With("listing_id", id.String()).Wrap(store.Classify(err, nil))
	}
	return l, nil
}

// Update reconciles p against the stored listing on behalf of actor.
func (s *Service) Update(ctx context.Context, actor, id ulid.ULID, p Patch) (*Listing, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(actor, current.OwnerID); err != nil {
		return nil, err
	}

	merged, changed := Merge(current, p)
	if len(changed) == 0 {
		return nil, oops.Code("LISTING_NO_CHANGES").With("listing_id", id.String()).Wrap(errutil.NoChanges())
	}
	if err := s.limits.Validate(merged); err != nil {
		return nil, oops.Code("LISTING_INVALID").With("listing_id", id.String()).Wrap(err)
	}
	merged.UpdatedAt = s.now().UTC()

	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	updated, err := s.repo.Update(sctx, merged)
	if err != nil {
		return nil, oops.Code("LISTING_UPDATE_FAILED").
			With("listing_id", id.String()).
			With("fields", changed).
			Wrap(store.Classify(err, nil))
	}
	s.logger.InfoContext(ctx, "listing updated", "listing_id", id.String(), "fields", changed)
	return updated, nil
}

// Merge applies the present fields of p to a copy of current, normalizes the
// result and names the fields whose stored value would actually change.
func Merge(current *Listing, p Patch) (*Listing, []string) {
	merged := current.Clone()
	merged.Name = p.Name.Or(merged.Name)
	merged.Description = p.Description.Or(merged.Description)
	merged.Address = p.Address.Or(merged.Address)
	merged.Type = p.Type.Or(merged.Type)
	merged.Bedrooms = p.Bedrooms.Or(merged.Bedrooms)
	merged.Bathrooms = p.Bathrooms.Or(merged.Bathrooms)
	merged.RegularPrice = p.RegularPrice.Or(merged.RegularPrice)
	merged.DiscountPrice = p.DiscountPrice.Or(merged.DiscountPrice)
	merged.Offer = p.Offer.Or(merged.Offer)
	merged.Parking = p.Parking.Or(merged.Parking)
	merged.Furnished = p.Furnished.Or(merged.Furnished)
	if p.ImageURLs.Set {
		merged.ImageURLs = append([]string(nil), p.ImageURLs.Value...)
	}
	merged.Normalize()

	var changed []string
	diff := func(field string, differs bool) {
		if differs {
			changed = append(changed, field)
		}
	}
	diff("name", merged.Name != current.Name)
	diff("description", merged.Description != current.Description)
	diff("address", merged.Address != current.Address)
	diff("type", merged.Type != current.Type)
	diff("bedrooms", merged.Bedrooms != current.Bedrooms)
	diff("bathrooms", merged.Bathrooms != current.Bathrooms)
	diff("regularPrice", merged.RegularPrice != current.RegularPrice)
	diff("discountPrice", merged.DiscountPrice != current.DiscountPrice)
	diff("offer", merged.Offer != current.Offer)
	diff("parking", merged.Parking != current.Parking)
	diff("furnished", merged.Furnished != current.Furnished)
	diff("imageUrls", !slices.Equal(merged.ImageURLs, current.ImageURLs))

	return merged, changed
}

// Delete removes a listing owned by actor.
func (s *Service) Delete(ctx context.Context, actor, id ulid.ULID) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.RequireOwner(actor, current.OwnerID); err != nil {
		return err
	}

	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Delete(sctx, id); err != nil {
		return oops.Code("LISTING_DELETE_FAILED").With("listing_id", id.String()).Wrap(store.Classify(err, nil))
	}
	s.logger.InfoContext(ctx, "listing deleted", "listing_id", id.String(), "owner_id", actor.String())
	return nil
}

// ListByOwner returns owner's listings. Only the owner may list them.
func (s *Service) ListByOwner(ctx context.Context, actor, owner ulid.ULID) ([]*Listing, error) {
	if err := auth.RequireOwner(actor, owner); err != nil {
		return nil, err
	}
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	listings, err := s.repo.ListByOwner(sctx, owner)
	if err != nil {
		return nil, oops.Code("LISTING_LIST_FAILED").With("owner_id", owner.String()).Wrap(store.Classify(err, nil))
	}
	return listings, nil
}
