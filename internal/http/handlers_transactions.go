package http

import (
	"context"
	"net/http"
	"time"

	"riepilogo/internal/core"
	"riepilogo/internal/services"
)

const storeTimeout = 7 * time.Second

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := parseOwner(r, s.defaultOwner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rng, err := parseDateRange(r.URL.Query(), s.loc, s.clock.Now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	records, err := s.reader.Query(ctx, owner, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, newTransactionDTO(rec))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, in, ok := s.transactionInput(w, r)
	if !ok {
		return
	}

	rec, err := s.svc.CreateTransaction(r.Context(), owner, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+rec.ID).
		JSON(newTransactionDTO(rec)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, in, ok := s.transactionInput(w, r)
	if !ok {
		return
	}

	rec, err := s.svc.UpdateTransaction(r.Context(), owner, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(newTransactionDTO(rec)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := parseOwner(r, s.defaultOwner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.DeleteTransaction(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// transactionInput parses the owner and body shared by create and update.
// It writes the error response itself and reports false on failure.
func (s *Server) transactionInput(w http.ResponseWriter, r *http.Request) (core.OwnerID, services.TransactionInput, bool) {
	owner, err := parseOwner(r, s.defaultOwner)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return "", services.TransactionInput{}, false
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return "", services.TransactionInput{}, false
	}
	in, err := req.toInput(s.loc)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return "", services.TransactionInput{}, false
	}
	return owner, in, true
}
