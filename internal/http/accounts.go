package http

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.accounts.Create(r.Context(), req.toAccount(u.ID))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	accounts, err := s.accounts.List(r.Context(), u.ID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	a, err := s.accounts.Get(r.Context(), r.PathValue("id"), u.ID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	a, err := s.accounts.SetDefault(r.Context(), u.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, toAccountResponse(a))
}
