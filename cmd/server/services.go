package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/printdesk/internal/loader"
	"github.com/Simplici0/printdesk/internal/pricing"
	"github.com/Simplici0/printdesk/internal/repository"
)

type commentRequest struct {
	Body string `json:"body"`
}

// quoteResponse is the priced draft returned by POST /api/quote.
type quoteResponse struct {
	Totals    pricing.Totals `json:"totals"`
	Breakdown breakdown      `json:"breakdown"`
}

func (s *server) handleServicesList(w http.ResponseWriter, r *http.Request) {
	services, err := loader.Run(r.Context(), "services.list", s.repo.Services.List, s.cache(r.Context()).SetServices)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (s *server) handleServicesGet(w http.ResponseWriter, r *http.Request) {
	svc, err := s.repo.Services.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *server) handleServicesCreate(w http.ResponseWriter, r *http.Request) {
	var in repository.ServiceInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateService(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	svc, err := s.repo.Services.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "services.list", s.repo.Services.List, s.cache(r.Context()).SetServices)
	writeJSON(w, http.StatusCreated, svc)
}

func (s *server) handleServicesUpdate(w http.ResponseWriter, r *http.Request) {
	var in repository.ServiceInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateService(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	svc, err := s.repo.Services.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "services.list", s.repo.Services.List, s.cache(r.Context()).SetServices)
	writeJSON(w, http.StatusOK, svc)
}

func (s *server) handleServicesRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Services.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	refresh(s, r.Context(), "services.list", s.repo.Services.List, s.cache(r.Context()).SetServices)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleServicesPayment(w http.ResponseWriter, r *http.Request) {
	var in repository.PaymentInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validatePayment(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	payment, err := s.repo.Services.AddPayment(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *server) handleServicesComment(w http.ResponseWriter, r *http.Request) {
	var in commentRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	errs := fieldErrors{}
	errs.required("body", in.Body, "Comentário é obrigatório")
	if err := errs.err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	comment, err := s.repo.Services.AddComment(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(in.Body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *server) handleServicesText(w http.ResponseWriter, r *http.Request) {
	svc, err := s.repo.Services.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	settings, err := s.loadSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	st := s.store.GetState()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(quoteText(svc, settings, st.Locale, st.Currency)))
}

// handleQuote prices a draft without saving it.
func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var in repository.ServiceInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Name == "" {
		in.Name = "rascunho"
	}
	if err := validateService(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.repo.Services.Quote(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		Totals:    order.Totals,
		Breakdown: breakdownOf(order.Draft()),
	})
}
