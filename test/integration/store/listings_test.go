// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

//go:build integration

package store_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/estatehub/estatehub/internal/listing"
	"github.com/estatehub/estatehub/internal/patch"
	"github.com/estatehub/estatehub/pkg/errutil"
)

func sampleDraft() listing.Draft {
	return listing.Draft{
		Name:          "Sunny loft near the park",
		Description:   "Two floors, big windows.",
		Address:       "12 Elm Street",
		Type:          listing.TypeSale,
		Bedrooms:      2,
		Bathrooms:     1,
		RegularPrice:  250_000,
		DiscountPrice: 240_000,
		Offer:         true,
		ImageURLs:     []string{"https://img.example.com/1.jpg", "https://img.example.com/2.jpg"},
	}
}

var _ = Describe("Listings", func() {
	var owner ulid.ULID

	BeforeEach(func() {
		cleanupTables(env.ctx, env.pool)
		owner = signup("owner", "owner@example.com").ID
	})

	It("stores and reads back every field", func() {
		created, err := env.Listing.Create(env.ctx, owner, sampleDraft())
		Expect(err).NotTo(HaveOccurred())

		got, err := env.Listing.Get(env.ctx, created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.OwnerID).To(Equal(owner))
		Expect(got.ImageURLs).To(Equal(sampleDraft().ImageURLs))
		Expect(got.DiscountPrice).To(Equal(int64(240_000)))
		Expect(got.CreatedAt).To(BeTemporally("~", created.CreatedAt, time.Millisecond))
	})

	It("rejects listings for a missing owner", func() {
		_, err := env.Listing.Create(env.ctx, ulid.Make(), sampleDraft())
		Expect(errutil.KindOf(err)).To(Equal(errutil.ErrNotFound))
	})

	It("keeps non-owners out", func() {
		created, err := env.Listing.Create(env.ctx, owner, sampleDraft())
		Expect(err).NotTo(HaveOccurred())
		intruder := signup("intruder", "intruder@example.com").ID

		_, err = env.Listing.Update(env.ctx, intruder, created.ID, listing.Patch{Name: patch.Some("Hijacked listing name")})
		Expect(errutil.KindOf(err)).To(Equal(errutil.ErrForbidden))

		err = env.Listing.Delete(env.ctx, intruder, created.ID)
		Expect(errutil.KindOf(err)).To(Equal(errutil.ErrForbidden))

		got, err := env.Listing.Get(env.ctx, created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal(sampleDraft().Name))
	})

	It("applies an owner's patch and bumps updated_at", func() {
		created, err := env.Listing.Create(env.ctx, owner, sampleDraft())
		Expect(err).NotTo(HaveOccurred())

		updated, err := env.Listing.Update(env.ctx, owner, created.ID, listing.Patch{
			Offer:    patch.Some(false),
			Bedrooms: patch.Some(4),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Bedrooms).To(Equal(4))
		Expect(updated.DiscountPrice).To(BeZero())
		Expect(updated.UpdatedAt).To(BeTemporally(">=", created.UpdatedAt.Truncate(time.Microsecond)))
	})

	It("enforces discount <= regular at the database too", func() {
		created, err := env.Listing.Create(env.ctx, owner, sampleDraft())
		Expect(err).NotTo(HaveOccurred())

		bad := created.Clone()
		bad.DiscountPrice = bad.RegularPrice + 1
		_, err = env.Listings.Update(env.ctx, bad)
		Expect(errutil.KindOf(err)).To(Equal(errutil.ErrValidation))
		Expect(errutil.FieldOf(err)).To(Equal("discountPrice"))
	})

	It("lists an owner's listings newest first", func() {
		first, err := env.Listing.Create(env.ctx, owner, sampleDraft())
		Expect(err).NotTo(HaveOccurred())
		time.Sleep(5 * time.Millisecond)
		second, err := env.Listing.Create(env.ctx, owner, sampleDraft())
		Expect(err).NotTo(HaveOccurred())

		got, err := env.Listing.ListByOwner(env.ctx, owner, owner)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal(second.ID))
		Expect(got[1].ID).To(Equal(first.ID))
	})
})

var _ = Describe("Migrations", func() {
	It("report the latest version as clean", func() {
		status := migrationStatus()
		Expect(status.Dirty).To(BeFalse())
		Expect(status.Pending).To(BeEmpty())
		Expect(status.Version).To(BeNumerically(">=", 2))
	})
})
