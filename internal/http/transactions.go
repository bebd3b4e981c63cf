package http

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(u.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	transactions, err := s.transactions.List(r.Context(), u.ID, r.URL.Query().Get("account_id"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, toTransactionResponses(transactions))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	t, err := s.transactions.Get(r.Context(), r.PathValue("id"), u.ID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(u.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = r.PathValue("id")

	updated, err := s.transactions.Update(r.Context(), t)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	if err := s.transactions.Delete(r.Context(), r.PathValue("id"), u.ID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}
