package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/perttin/crewmatch/internal/ingest"
	"github.com/perttin/crewmatch/internal/match"
	"github.com/perttin/crewmatch/internal/store"
)

func handleListConsultants(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		consultants, err := deps.Store.GetAll(r.Context())
		if err != nil {
			writeCoreError(w, err)
			return
		}
		if consultants == nil {
			consultants = []match.Consultant{}
		}
		writeJSON(w, http.StatusOK, consultants)
	}
}

func handleCreateConsultant(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var c match.Consultant
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if err := c.Validate(); err != nil {
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "%v", err)
			return
		}

		if err := deps.Store.Insert(r.Context(), c); err != nil {
			writeCoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID, "status": "created"})
	}
}

func handleUploadResume(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxResumeBytes)
		defer r.Body.Close()
		data, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "reading body: %v", err)
			return
		}

		text, err := ingest.ExtractText(data)
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "extracting resume text: %v", err)
			return
		}

		ref := r.URL.Query().Get("filename")
		if ref == "" {
			ref = "upload"
		}
		if err := deps.Store.UpdateResume(r.Context(), id, text, ref); err != nil {
			writeCoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "resume indexed"})
	}
}

func handleOverview(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		consultants, err := deps.Store.GetAll(r.Context())
		if err != nil {
			writeCoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, store.BuildOverview(consultants))
	}
}
