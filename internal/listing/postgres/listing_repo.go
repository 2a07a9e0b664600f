// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package postgres implements listing.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/listing"
	"github.com/estatehub/estatehub/internal/store"
	"github.com/estatehub/estatehub/pkg/errutil"
)

const listingColumns = `id, owner_id, name, description, address, type, bedrooms, bathrooms,
	regular_price, discount_price, offer, parking, furnished, image_urls, created_at, updated_at`

// ListingRepository implements listing.Repository using PostgreSQL.
type ListingRepository struct {
	db store.DB
}

var _ listing.Repository = (*ListingRepository)(nil)

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(db store.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func notFound(id ulid.ULID) error {
	return oops.Code("LISTING_NOT_FOUND").With("listing_id", id.String()).Wrap(errutil.NotFound("listing not found"))
}

// classify maps constraint failures onto the taxonomy. The service validates
// first, so these only fire when a row changes underneath it.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation:
			return errutil.NotFound("user not found")
		case pgerrcode.CheckViolation:
			if pgErr.ConstraintName == "listings_discount_le_regular" {
				return errutil.Validation("discountPrice", "discount price must not exceed regular price")
			}
			return errutil.Validation("", "listing violates %s", pgErr.ConstraintName)
		}
	}
	return store.Classify(err, nil)
}

// Create stores a new listing.
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		l.ID.String(),
		l.OwnerID.String(),
		l.Name,
		l.Description,
		l.Address,
		string(l.Type),
		l.Bedrooms,
		l.Bathrooms,
		l.RegularPrice,
		l.DiscountPrice,
		l.Offer,
		l.Parking,
		l.Furnished,
		l.ImageURLs,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		return oops.Code("LISTING_CREATE_FAILED").
			With("listing_id", l.ID.String()).
			With("owner_id", l.OwnerID.String()).
			Wrap(classify(err))
	}
	return nil
}

// Get retrieves a listing by ID.
func (r *ListingRepository) Get(ctx context.Context, id ulid.ULID) (*listing.Listing, error) {
	row := r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id.String())
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, oops.Code("LISTING_GET_FAILED").With("listing_id", id.String()).Wrap(store.Classify(err, nil))
	}
	return l, nil
}

// Update replaces the mutable fields in one statement. The owner guard in the
// WHERE clause makes a listing that was deleted or reassigned look missing.
func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) (*listing.Listing, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE listings SET
			name = $3,
			description = $4,
			address = $5,
			type = $6,
			bedrooms = $7,
			bathrooms = $8,
			regular_price = $9,
			discount_price = $10,
			offer = $11,
			parking = $12,
			furnished = $13,
			image_urls = $14,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+listingColumns,
		l.ID.String(),
		l.OwnerID.String(),
		l.Name,
		l.Description,
		l.Address,
		string(l.Type),
		l.Bedrooms,
		l.Bathrooms,
		l.RegularPrice,
		l.DiscountPrice,
		l.Offer,
		l.Parking,
		l.Furnished,
		l.ImageURLs,
	)
	updated, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(l.ID)
	}
	if err != nil {
		return nil, oops.Code("LISTING_UPDATE_FAILED").With("listing_id", l.ID.String()).Wrap(classify(err))
	}
	return updated, nil
}

// Delete removes a listing.
func (r *ListingRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("LISTING_DELETE_FAILED").With("listing_id", id.String()).Wrap(store.Classify(err, nil))
	}
	if result.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// ListByOwner returns the owner's listings, newest first.
func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*listing.Listing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`, ownerID.String())
	if err != nil {
		return nil, oops.Code("LISTING_QUERY_FAILED").With("owner_id", ownerID.String()).Wrap(store.Classify(err, nil))
	}
	defer rows.Close()

	listings := make([]*listing.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, oops.Code("LISTING_SCAN_FAILED").With("owner_id", ownerID.String()).Wrap(err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("LISTING_QUERY_FAILED").With("owner_id", ownerID.String()).Wrap(store.Classify(err, nil))
	}
	return listings, nil
}

// scanListing scans one row. pgx.ErrNoRows is returned unwrapped.
func scanListing(row pgx.Row) (*listing.Listing, error) {
	var (
		l         listing.Listing
		idStr     string
		ownerStr  string
		typ       string
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&idStr, &ownerStr, &l.Name, &l.Description, &l.Address, &typ,
		&l.Bedrooms, &l.Bathrooms, &l.RegularPrice, &l.DiscountPrice,
		&l.Offer, &l.Parking, &l.Furnished, &l.ImageURLs, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	if l.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("LISTING_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if l.OwnerID, err = ulid.Parse(ownerStr); err != nil {
		return nil, oops.Code("LISTING_INVALID_ID").With("owner_id", ownerStr).Wrap(err)
	}
	l.Type = listing.Type(typ)
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}
	l.CreatedAt = createdAt.UTC()
	l.UpdatedAt = updatedAt.UTC()
	return &l, nil
}
