// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web

import (
	"net/http"

	"github.com/estatehub/estatehub/internal/listing"
)

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var d listing.Draft
	if err := s.decodeJSON(w, r, &d); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.listings.Create(r.Context(), actor(r.Context()), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p listing.Patch
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.listings.Update(r.Context(), actor(r.Context()), id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.listings.Delete(r.Context(), actor(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageBody{Message: "Listing has been deleted"})
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.listings.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleUserListings(w http.ResponseWriter, r *http.Request) {
	owner, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	listings, err := s.listings.ListByOwner(r.Context(), actor(r.Context()), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}
