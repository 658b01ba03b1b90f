package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/importer"
)

const maxWorkbookSize = 32 << 20

// parseBundle accepts the export tables as JSON and opens an import session
func (r *Router) parseBundle(w http.ResponseWriter, req *http.Request) {
	bundle, err := importer.DecodeBundle(req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	session, err := r.imports.Parse(bundle, req.URL.Query().Get("fileName"))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// parseWorkbook accepts an exported workbook as multipart "file"
func (r *Router) parseWorkbook(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(maxWorkbookSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	session, err := r.imports.ParseWorkbook(file, header.Filename)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			// Unreadable workbooks are the caller's problem
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// getSession returns the parsed tree of a session
func (r *Router) getSession(w http.ResponseWriter, req *http.Request) {
	session, err := r.imports.Get(mux.Vars(req)["session"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// convert persists the selected items of a session. ?all=true selects everything.
func (r *Router) convert(w http.ResponseWriter, req *http.Request) {
	sessionID := mux.Vars(req)["session"]

	var selection importer.SelectionRequest
	if err := json.NewDecoder(req.Body).Decode(&selection); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if all, _ := strconv.ParseBool(req.URL.Query().Get("all")); all {
		session, err := r.imports.Get(sessionID)
		if err != nil {
			respondError(w, statusFor(err), err.Error())
			return
		}
		selection.SelectedItems = importer.SelectAll(session.Data)
	}

	result, err := r.imports.Convert(req.Context(), sessionID, selection)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	status := http.StatusCreated
	switch result.Status {
	case importer.StatusValidationError:
		status = http.StatusBadRequest
	case importer.StatusDuplicate:
		status = http.StatusConflict
	case importer.StatusError, importer.StatusPersistError:
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, result)
}

// getWorkOrder returns a persisted work order with its nest sheets and parts
func (r *Router) getWorkOrder(w http.ResponseWriter, req *http.Request) {
	wo, err := r.store.LoadWorkOrder(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, wo)
}

// workOrderLabels renders the nest sheet labels of a work order as PDF
func (r *Router) workOrderLabels(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	pdfBytes, err := r.imports.Labels(req.Context(), id)
	if err != nil {
		r.log.Warn("Label generation failed", zap.String("work_order_id", id), zap.Error(err))
		respondError(w, statusFor(err), fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	// Set headers for download
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"labels_%s.pdf\"", id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))

	w.Write(pdfBytes)
}
