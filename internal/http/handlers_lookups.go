package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"riepilogo/internal/core"
)

// parseLookupKind accepts the singular kinds and their plural path forms.
func parseLookupKind(s string) (core.LookupKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "category", "categories":
		return core.CategoryKind, nil
	case "payment_method", "payment_methods", "payment-methods":
		return core.PaymentMethodKind, nil
	case "establishment", "establishments":
		return core.EstablishmentKind, nil
	}
	return "", fmt.Errorf("unknown lookup kind %q", s)
}

func sortedLookups(table map[string]core.Lookup) []lookupDTO {
	out := make([]lookupDTO, 0, len(table))
	for _, l := range table {
		out = append(out, newLookupDTO(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) handleListLookups(w http.ResponseWriter, r *http.Request) {
	owner, err := parseOwner(r, s.defaultOwner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	ls, err := s.reader.Lookups(ctx, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	NewResponse().JSON(lookupsDTO{
		Categories:     sortedLookups(ls.Categories),
		PaymentMethods: sortedLookups(ls.PaymentMethods),
		Establishments: sortedLookups(ls.Establishments),
	}).Write(w)
}

func (s *Server) handleSaveLookup(w http.ResponseWriter, r *http.Request) {
	owner, err := parseOwner(r, s.defaultOwner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	kind, err := parseLookupKind(r.PathValue("kind"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	saved, err := s.svc.SaveLookup(r.Context(), core.Lookup{
		ID:      strings.TrimSpace(req.ID),
		Kind:    kind,
		Name:    sanitizeInput(req.Name),
		Icon:    sanitizeInput(req.Icon),
		OwnerID: owner,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if strings.TrimSpace(req.ID) == "" {
		status = http.StatusCreated
	}
	NewResponse().Status(status).JSON(newLookupDTO(saved)).Write(w)
}

func (s *Server) handleDeleteLookup(w http.ResponseWriter, r *http.Request) {
	owner, err := parseOwner(r, s.defaultOwner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	kind, err := parseLookupKind(r.PathValue("kind"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}
	if err := s.svc.DeleteLookup(r.Context(), kind, owner, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
