package http

import (
	"io"
	"log/slog"
	"net/http"
)

// maxReceiptSize caps uploaded receipt images at 10 MiB.
const maxReceiptSize = 10 << 20

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "receipt scanning is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing receipt file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read receipt file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	scanned, err := s.scanner.ScanReceipt(r.Context(), data, mimeType)
	if err != nil {
		slog.ErrorContext(r.Context(), "Receipt scan failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "could not extract receipt data")
		return
	}
	writeData(w, http.StatusOK, toReceiptResponse(scanned))
}
