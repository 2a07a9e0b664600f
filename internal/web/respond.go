// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// ErrorBody is the envelope of every failed request.
type ErrorBody struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// MessageBody acknowledges requests that return no entity.
type MessageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope. Server-side failures are logged with
// their oops context; the client only sees the status text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errutil.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected",
			"status", status,
			"kind", kindName(err),
			"error", err.Error(),
		)
	}
	writeJSON(w, status, ErrorBody{
		Success:    false,
		StatusCode: status,
		Message:    errutil.PublicMessage(err),
	})
}

func kindName(err error) string {
	if k := errutil.KindOf(err); k != nil {
		return k.Error()
	}
	return "unclassified"
}

// decodeJSON reads one JSON object from the body. Oversized, empty or
// malformed bodies are validation failures.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return oops.Code("REQUEST_TOO_LARGE").With("limit", tooLarge.Limit).
				Wrap(errutil.Validation("", "request body too large"))
		case errors.Is(err, io.EOF):
			return oops.Code("REQUEST_EMPTY").Wrap(errutil.Validation("", "request body is required"))
		default:
			return oops.Code("REQUEST_MALFORMED").Wrap(&errutil.Error{
				Kind:    errutil.ErrValidation,
				Message: "invalid request body",
				Cause:   err,
			})
		}
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (ulid.ULID, error) {
	raw := r.PathValue("id")
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("REQUEST_BAD_ID").With("id", raw).
			Wrap(errutil.Validation("id", "invalid id"))
	}
	return id, nil
}
