package pantry

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxFrameSize caps pushed frames; phone captures can be large.
const maxFrameSize = int64(50 << 20) // 50MB

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// writeJSON encodes a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError encodes an error body
func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// productView is a Product plus its computed freshness for display.
type productView struct {
	*Product
	Status          string `json:"status"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}

// handleListProducts returns all records, soonest expiry first
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.ListProducts()
	if err != nil {
		slog.Error("Error listing products", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	views := make([]productView, 0, len(products))
	for _, p := range products {
		status, days := p.Status(now)
		views = append(views, productView{Product: p, Status: status, DaysUntilExpiry: days})
	}

	writeJSON(w, http.StatusOK, views)
}

// handleGetProduct returns a single record
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	product, err := s.service.GetProduct(id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			corsError(w, "Product not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting product", "id", id, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status, days := product.Status(time.Now())
	writeJSON(w, http.StatusOK, productView{Product: product, Status: status, DaysUntilExpiry: days})
}

// handleDeleteProduct removes a record; deleting a missing id succeeds
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteProduct(id); err != nil {
		slog.Error("Error deleting product", "id", id, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetProductSnapshot serves the stored capture frame for a record
func (s *Server) handleGetProductSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, contentType, err := s.service.GetProductSnapshot(id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			corsError(w, "Product not found", http.StatusNotFound)
			return
		}
		corsError(w, "Snapshot not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handlePushFrame ingests the current camera frame. The body is either
// a multipart form with a "frame" file or a raw image with its
// Content-Type header.
func (s *Server) handlePushFrame(w http.ResponseWriter, r *http.Request) {
	var data []byte
	var contentType string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFrameSize); err != nil {
			slog.Error("Error parsing multipart form", "error", err)
			writeJSONError(w, http.StatusBadRequest, "Error parsing form")
			return
		}
		f, header, err := r.FormFile("frame")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "No frame provided")
			return
		}
		defer f.Close()
		if header.Size > maxFrameSize {
			writeJSONError(w, http.StatusBadRequest, "Frame is too large. Maximum size is 50MB.")
			return
		}
		data, err = io.ReadAll(f)
		if err != nil {
			slog.Error("Error reading frame data", "error", err)
			writeJSONError(w, http.StatusBadRequest, "Error reading frame")
			return
		}
		contentType = header.Header.Get("Content-Type")
	} else {
		var err error
		data, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameSize))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "Error reading frame")
			return
		}
		contentType = r.Header.Get("Content-Type")
	}

	if len(data) == 0 {
		writeJSONError(w, http.StatusBadRequest, "Empty frame")
		return
	}

	s.frames.Push(data, contentType)
	setCORSHeaders(w)
	w.WriteHeader(http.StatusAccepted)
}

// handleScanStatus reports the engine's current state
func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleConfirm accepts the resolved candidate
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.commandResponse(w, s.engine.Confirm())
}

// handleManualExpiry supplies a manually entered expiry date
func (s *Server) handleManualExpiry(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.engine.SubmitManualDate(body.Date); err != nil {
		if errors.Is(err, ErrInvalidState) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleAbort cancels the scan in progress
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	s.commandResponse(w, s.engine.Abort())
}

func (s *Server) commandResponse(w http.ResponseWriter, err error) {
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("Scan command failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}
