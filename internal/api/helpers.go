// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package api wires the recorder's HTTP boundary: health/metrics endpoints,
// the per-subscriber RSS feed route, media serving out of internal/storage,
// and a mounted GraphQL endpoint, all behind internal/auth's Basic/OIDC
// dispatch. Grounded on autobrr-qui's internal/api/{router.go,
// handlers/helpers.go}, adapted from its session-based auth to this
// package's stateless per-request Authenticate.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dumtruck/konobangu/internal/apperrors"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("api: failed to encode JSON response")
		}
	}
}

// RespondError writes an ErrorResponse with the given status code.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// RespondAppError maps an apperrors.Kind to an HTTP status code and writes
// the corresponding ErrorResponse, following spec.md section 7's kind-to-
// boundary mapping.
func RespondAppError(w http.ResponseWriter, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		RespondError(w, http.StatusNotFound, err.Error())
	case apperrors.KindAuth:
		RespondError(w, http.StatusUnauthorized, err.Error())
	case apperrors.KindConflict:
		RespondError(w, http.StatusConflict, err.Error())
	case apperrors.KindFormat:
		RespondError(w, http.StatusBadRequest, err.Error())
	case apperrors.KindTimeout:
		RespondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

// DecodeJSON decodes the request body into dest, responding with 400 and
// returning false on any decode error.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// DecodeJSONOptional is DecodeJSON but treats an empty body as success.
func DecodeJSONOptional[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && err != io.EOF {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// ParseStringParam extracts a trimmed, required chi URL parameter.
func ParseStringParam(w http.ResponseWriter, r *http.Request, paramName, displayName string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, paramName))
	if value == "" {
		RespondError(w, http.StatusBadRequest, displayName+" is required")
		return "", false
	}
	return value, true
}

// ParseIntParam extracts and parses a required integer chi URL parameter.
func ParseIntParam(w http.ResponseWriter, r *http.Request, paramName, displayName string) (int, bool) {
	str, ok := ParseStringParam(w, r, paramName, displayName)
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid "+displayName)
		return 0, false
	}
	return value, true
}
