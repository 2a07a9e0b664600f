// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package listing manages property listings and the owner-only rules for
// changing them.
package listing

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// Type is the transaction type of a listing.
type Type string

// Listing types.
const (
	TypeSale Type = "sale"
	TypeRent Type = "rent"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypeSale || t == TypeRent
}

// Listing is a stored property listing. OwnerID never changes after creation.
type Listing struct {
	ID            ulid.ULID `json:"id"`
	OwnerID       ulid.ULID `json:"userRef"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Address       string    `json:"address"`
	Type          Type      `json:"type"`
	Bedrooms      int       `json:"bedrooms"`
	Bathrooms     int       `json:"bathrooms"`
	RegularPrice  int64     `json:"regularPrice"`
	DiscountPrice int64     `json:"discountPrice"`
	Offer         bool      `json:"offer"`
	Parking       bool      `json:"parking"`
	Furnished     bool      `json:"furnished"`
	ImageURLs     []string  `json:"imageUrls"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (l *Listing) Clone() *Listing {
	c := *l
	c.ImageURLs = append([]string(nil), l.ImageURLs...)
	return &c
}

// Normalize fills defaults: an omitted type is rent, and without an offer
// there is no discount.
func (l *Listing) Normalize() {
	if l.Type == "" {
		l.Type = TypeRent
	}
	if !l.Offer {
		l.DiscountPrice = 0
	}
}

// Limits bound listing fields.
type Limits struct {
	MinNameLength   int   `koanf:"min_name_length" json:"min_name_length,omitempty" jsonschema:"minimum=1"`
	MaxNameLength   int   `koanf:"max_name_length" json:"max_name_length,omitempty" jsonschema:"minimum=1"`
	MaxRooms        int   `koanf:"max_rooms" json:"max_rooms,omitempty" jsonschema:"minimum=1"`
	MinRegularPrice int64 `koanf:"min_regular_price" json:"min_regular_price,omitempty" jsonschema:"minimum=0"`
	MaxPrice        int64 `koanf:"max_price" json:"max_price,omitempty" jsonschema:"minimum=1"`
	MaxImages       int   `koanf:"max_images" json:"max_images,omitempty" jsonschema:"minimum=1"`
}

// DefaultLimits match the listing form.
var DefaultLimits = Limits{
	MinNameLength:   10,
	MaxNameLength:   62,
	MaxRooms:        10,
	MinRegularPrice: 50,
	MaxPrice:        10_000_000,
	MaxImages:       6,
}

// Validate checks l against the limits. The first failing field is reported.
func (lim Limits) Validate(l *Listing) error {
	name := strings.TrimSpace(l.Name)
	switch {
	case name == "":
		return errutil.Validation("name", "name is required")
	case len(name) < lim.MinNameLength || len(name) > lim.MaxNameLength:
		return errutil.Validation("name", "name must be between %d and %d characters", lim.MinNameLength, lim.MaxNameLength)
	case strings.TrimSpace(l.Description) == "":
		return errutil.Validation("description", "description is required")
	case strings.TrimSpace(l.Address) == "":
		return errutil.Validation("address", "address is required")
	case !l.Type.Valid():
		return errutil.Validation("type", "type must be %q or %q", TypeSale, TypeRent)
	}

	if err := lim.validateRooms("bedrooms", l.Bedrooms); err != nil {
		return err
	}
	if err := lim.validateRooms("bathrooms", l.Bathrooms); err != nil {
		return err
	}

	if l.RegularPrice < lim.MinRegularPrice || l.RegularPrice > lim.MaxPrice {
		return errutil.Validation("regularPrice", "regular price must be between %d and %d", lim.MinRegularPrice, lim.MaxPrice)
	}
	if l.DiscountPrice < 0 || l.DiscountPrice > lim.MaxPrice {
		return errutil.Validation("discountPrice", "discount price must be between 0 and %d", lim.MaxPrice)
	}
	if l.Offer && l.DiscountPrice > l.RegularPrice {
		return errutil.Validation("discountPrice", "discount price must not exceed regular price")
	}

	if len(l.ImageURLs) == 0 {
		return errutil.Validation("imageUrls", "at least one image is required")
	}
	if len(l.ImageURLs) > lim.MaxImages {
		return errutil.Validation("imageUrls", "at most %d images are allowed", lim.MaxImages)
	}
	for _, u := range l.ImageURLs {
		if strings.TrimSpace(u) == "" {
			return errutil.Validation("imageUrls", "image references must not be empty")
		}
	}
	return nil
}

func (lim Limits) validateRooms(field string, n int) error {
	if n < 1 || n > lim.MaxRooms {
		return errutil.Validation(field, "%s must be between 1 and %d", field, lim.MaxRooms)
	}
	return nil
}

// Repository manages listing persistence.
type Repository interface {
	// Create stores a new listing.
	Create(ctx context.Context, l *Listing) error

	// Get retrieves a listing by ID.
	Get(ctx context.Context, id ulid.ULID) (*Listing, error)

	// Update replaces the mutable fields of the listing with l.ID, provided
	// it is still owned by l.OwnerID, and returns the stored result.
	Update(ctx context.Context, l *Listing) (*Listing, error)

	// Delete removes a listing.
	Delete(ctx context.Context, id ulid.ULID) error

	// ListByOwner returns the owner's listings, newest first.
	ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*Listing, error)
}
