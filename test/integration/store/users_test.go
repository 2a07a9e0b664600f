// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

//go:build integration

package store_test

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/patch"
	"github.com/estatehub/estatehub/pkg/errutil"
)

func signup(username, email string) auth.PublicUser {
	GinkgoHelper()
	u, err := env.Auth.Signup(env.ctx, auth.SignupInput{Username: username, Email: email, Password: "secret123"})
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("User accounts", func() {
	BeforeEach(func() {
		cleanupTables(env.ctx, env.pool)
	})

	Describe("signup and signin", func() {
		It("round-trips a new account", func() {
			u := signup("alice", "alice@example.com")

			session, err := env.Auth.Signin(env.ctx, "alice@example.com", "secret123")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.User.ID).To(Equal(u.ID))
			Expect(session.Token).NotTo(BeEmpty())
		})

		It("rejects unknown users and wrong passwords identically", func() {
			signup("alice", "alice@example.com")

			_, wrongPass := env.Auth.Signin(env.ctx, "alice@example.com", "nope-nope")
			_, unknown := env.Auth.Signin(env.ctx, "bob@example.com", "secret123")

			Expect(errutil.KindOf(wrongPass)).To(Equal(errutil.ErrInvalidCredentials))
			Expect(errutil.KindOf(unknown)).To(Equal(errutil.ErrInvalidCredentials))
			Expect(errutil.PublicMessage(wrongPass)).To(Equal(errutil.PublicMessage(unknown)))
		})

		It("reports the duplicate field", func() {
			signup("alice", "alice@example.com")

			_, err := env.Auth.Signup(env.ctx, auth.SignupInput{Username: "alice2", Email: "alice@example.com", Password: "secret123"})
			Expect(errutil.KindOf(err)).To(Equal(errutil.ErrDuplicateField))
			Expect(errutil.FieldOf(err)).To(Equal("email"))
		})
	})

	Describe("the unique indexes", func() {
		It("map a lost race to DuplicateField", func() {
			signup("alice", "alice@example.com")

			err := env.Users.Create(env.ctx, &auth.User{
				ID:           ulid.Make(),
				Username:     "alice",
				Email:        "other@example.com",
				PasswordHash: "x",
			})
			Expect(errutil.KindOf(err)).To(Equal(errutil.ErrDuplicateField))
			Expect(errutil.FieldOf(err)).To(Equal("username"))
		})

		It("allow many empty usernames", func() {
			for i := range 3 {
				err := env.Users.Create(env.ctx, &auth.User{
					ID:           ulid.Make(),
					Email:        fmt.Sprintf("anon%d@example.com", i),
					PasswordHash: "x",
				})
				Expect(err).NotTo(HaveOccurred())
			}
		})
	})

	Describe("updating a profile", func() {
		It("applies a partial patch and never exposes the digest", func() {
			u := signup("alice", "alice@example.com")

			var p auth.UserPatch
			Expect(json.Unmarshal([]byte(`{"avatar":"https://img.example.com/a.png","password":"brand-new-pass"}`), &p)).To(Succeed())

			updated, err := env.Auth.UpdateUser(env.ctx, u.ID, u.ID, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Avatar).To(Equal("https://img.example.com/a.png"))
			Expect(updated.Username).To(Equal("alice"))

			body, err := json.Marshal(updated)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).NotTo(ContainSubstring("argon2"))
			Expect(string(body)).NotTo(ContainSubstring("password"))

			_, err = env.Auth.Signin(env.ctx, "alice@example.com", "brand-new-pass")
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports no changes when every value matches", func() {
			u := signup("alice", "alice@example.com")

			_, err := env.Auth.UpdateUser(env.ctx, u.ID, u.ID, auth.UserPatch{Username: patch.Some("alice")})
			Expect(errutil.KindOf(err)).To(Equal(errutil.ErrNoChanges))
		})

		It("lets exactly one of many concurrent claims win a username", func() {
			const claimants = 8
			ids := make([]ulid.ULID, claimants)
			for i := range claimants {
				ids[i] = signup(fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i)).ID
			}

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				wins     int
				dupFails int
			)
			for _, id := range ids {
				wg.Add(1)
				go func(id ulid.ULID) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := env.Auth.UpdateUser(env.ctx, id, id, auth.UserPatch{Username: patch.Some("carol")})
					mu.Lock()
					defer mu.Unlock()
					switch errutil.KindOf(err) {
					case nil:
						wins++
					case errutil.ErrDuplicateField:
						dupFails++
					default:
						Fail(fmt.Sprintf("unexpected error: %v", err))
					}
				}(id)
			}
			wg.Wait()

			Expect(wins).To(Equal(1))
			Expect(dupFails).To(Equal(claimants - 1))

			var holders int
			Expect(env.pool.QueryRow(env.ctx, "SELECT count(*) FROM users WHERE username = 'carol'").Scan(&holders)).To(Succeed())
			Expect(holders).To(Equal(1))
		})
	})

	Describe("deleting an account", func() {
		It("removes the user and their listings", func() {
			u := signup("alice", "alice@example.com")
			_, err := env.Listing.Create(env.ctx, u.ID, sampleDraft())
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Auth.DeleteAccount(env.ctx, u.ID, u.ID)).To(Succeed())

			_, err = env.Users.GetByID(env.ctx, u.ID)
			Expect(errutil.KindOf(err)).To(Equal(errutil.ErrNotFound))

			remaining, err := env.Listings.ListByOwner(env.ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(BeEmpty())
		})
	})
})
