// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nextblog/nextblog-auth/internal/auth"
	"github.com/nextblog/nextblog-auth/internal/errutil"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Envelope is the shape of every API response. Token is only set by login.
type Envelope struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Token  string `json:"token,omitempty"`
	Data   any    `json:"data,omitempty"`
}

var kindStatus = map[auth.Kind]int{
	auth.KindValidation: http.StatusBadRequest,
	auth.KindConflict:   http.StatusConflict,
	auth.KindAuth:       http.StatusUnauthorized,
	auth.KindNotFound:   http.StatusNotFound,
	auth.KindExpired:    http.StatusBadRequest,
	auth.KindMismatch:   http.StatusBadRequest,
	auth.KindState:      http.StatusBadRequest,
	auth.KindExternal:   http.StatusBadGateway,
	auth.KindInternal:   http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind auth.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(env)
}

func writeSuccess(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, Envelope{Status: StatusSuccess, Msg: msg, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	envStatus := StatusFail
	if status >= http.StatusInternalServerError {
		envStatus = StatusError
	}
	writeJSON(w, status, Envelope{Status: envStatus, Msg: msg})
}

// writeError maps a service error to a response. Internal and external
// failures are logged and replaced by a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.KindOf(err)
	status := StatusFor(kind)

	msg := err.Error()
	switch kind {
	case auth.KindInternal:
		msg = "internal server error"
		errutil.LogErrorContext(r.Context(), s.logger, "request failed", err,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	case auth.KindExternal:
		msg = "message delivery failed, try again later"
		errutil.LogErrorContext(r.Context(), s.logger, "upstream delivery failed", err,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	writeFail(w, status, msg)
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeFail(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeFail(w, http.StatusBadRequest, "request body is required")
		default:
			writeFail(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}
