package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/go-chi/chi/v5"
)

// maxLeadBody caps JSON bodies of create and update requests.
const maxLeadBody = 64 << 10

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	user, _ := core.UserFromContext(r.Context())

	page, err := s.service.ListLeads(r.Context(), user, parseFilter(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	user, _ := core.UserFromContext(r.Context())

	rec, err := decodeRecord(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	lead, err := s.service.CreateLead(r.Context(), user, rec)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	w.Header().Set("Location", "/api/leads/"+lead.ID)
	writeJSONStatus(w, http.StatusCreated, lead)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	user, _ := core.UserFromContext(r.Context())

	lead, err := s.service.GetLead(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, lead)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	user, _ := core.UserFromContext(r.Context())

	rec, err := decodeRecord(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	lead, err := s.service.UpdateLead(r.Context(), user, chi.URLParam(r, "id"), rec)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	user, _ := core.UserFromContext(r.Context())

	if err := s.service.DeleteLead(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := core.UserFromContext(r.Context())

	entries, err := s.service.History(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, map[string]any{"history": entries})
}

// decodeRecord reads a Record from the JSON body. Malformed JSON is reported
// as a validation error on the body so the client sees a 400.
func decodeRecord(w http.ResponseWriter, r *http.Request) (core.Record, error) {
	var rec core.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeadBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return core.Record{}, core.ValidationErrors{{
			Field:   "body",
			Message: fmt.Sprintf("Invalid JSON: %v", err),
		}}
	}
	return rec, nil
}

// parseFilter reads the listing filters from the query string. The service
// normalizes the enum values; unknown values match nothing.
func parseFilter(r *http.Request) core.LeadFilter {
	q := r.URL.Query()
	return core.LeadFilter{
		Search:       q.Get("search"),
		City:         core.City(q.Get("city")),
		PropertyType: core.PropertyType(q.Get("propertyType")),
		Status:       core.Status(q.Get("status")),
		Timeline:     core.Timeline(q.Get("timeline")),
		Page:         parseIntParam(r, "page", 1),
	}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
