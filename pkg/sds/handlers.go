package sds

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/solaius/sds-registry/pkg/identity"
	"github.com/solaius/sds-registry/pkg/tenancy"
)

// createDocumentHandler returns a handler that creates a version-1 document.
// POST /api/v1/documents
func createDocumentHandler(versions *VersionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		actor := identity.ActorFromContext(r.Context())

		var body struct {
			DocumentNumber string            `json:"documentNumber"`
			Metadata       *DocumentMetadata `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		// The engine does not enforce number uniqueness; guard here so the
		// API never forks a document number into two chains.
		if body.DocumentNumber != "" {
			existing, err := versions.store.GetLatestByNumber(tenantID, body.DocumentNumber)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			if existing != nil {
				writeError(w, http.StatusConflict,
					fmt.Sprintf("document %s already exists; create a new version instead", body.DocumentNumber))
				return
			}
		}

		doc, err := versions.CreateDocument(r.Context(), tenantID, body.DocumentNumber, actor, body.Metadata)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		sections, err := versions.store.GetSections(doc.ID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToDocument(doc, sections))
	}
}

// getDocumentHandler returns a handler that retrieves a document with its
// sections. GET /api/v1/documents/{id}
func getDocumentHandler(versions *VersionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		id := chi.URLParam(r, "id")

		doc, sections, err := versions.GetDocument(r.Context(), tenantID, id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToDocument(doc, sections))
	}
}

// patchDocumentHandler returns a handler that updates document metadata.
// PATCH /api/v1/documents/{id}
func patchDocumentHandler(versions *VersionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		actor := identity.ActorFromContext(r.Context())
		id := chi.URLParam(r, "id")

		var metadata DocumentMetadata
		if err := json.NewDecoder(r.Body).Decode(&metadata); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		doc, err := versions.UpdateMetadata(r.Context(), tenantID, id, actor, &metadata)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToDocument(doc, nil))
	}
}

// searchDocumentsHandler returns a handler that searches latest-version
// documents. GET /api/v1/documents/search?q=...&casNumber=...&supplier=...&filterQuery=...
func searchDocumentsHandler(search *SearchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())

		opts := SearchOptions{
			FreeText:    r.URL.Query().Get("q"),
			CasNumber:   r.URL.Query().Get("casNumber"),
			Supplier:    r.URL.Query().Get("supplier"),
			FilterQuery: r.URL.Query().Get("filterQuery"),
		}

		docs, err := search.Search(r.Context(), tenantID, opts)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"documents": docs,
			"totalSize": len(docs),
		})
	}
}

// getLatestDocumentHandler returns a handler that resolves a document number
// to its latest version. GET /api/v1/documents/latest/{number}
func getLatestDocumentHandler(versions *VersionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		number := chi.URLParam(r, "number")

		doc, err := versions.GetLatestByNumber(r.Context(), tenantID, number)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToDocument(doc, nil))
	}
}

// listVersionsHandler returns a handler that walks a document's version
// chain, oldest first. GET /api/v1/documents/{id}/versions
func listVersionsHandler(versions *VersionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		id := chi.URLParam(r, "id")

		history, err := versions.VersionHistory(r.Context(), tenantID, id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		docs := make([]Document, len(history))
		for i := range history {
			docs[i] = recordToDocument(&history[i], nil)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"versions":  docs,
			"totalSize": len(docs),
		})
	}
}

// createVersionHandler returns a handler that derives the next version of a
// document. POST /api/v1/documents/{id}/versions
func createVersionHandler(versions *VersionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		actor := identity.ActorFromContext(r.Context())
		id := chi.URLParam(r, "id")

		doc, err := versions.CreateNewVersion(r.Context(), tenantID, id, actor)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToDocument(doc, nil))
	}
}

// updateSectionHandler returns a handler that replaces the content of one
// section. PUT /api/v1/documents/{id}/sections/{number}
func updateSectionHandler(editor *SectionEditor, versions *VersionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		actor := identity.ActorFromContext(r.Context())
		id := chi.URLParam(r, "id")

		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "section number must be an integer")
			return
		}

		var body struct {
			Content         string `json:"content"`
			RenderedContent string `json:"renderedContent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		section, err := editor.UpdateSection(r.Context(), tenantID, id, number, body.Content, body.RenderedContent, actor)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		versions.record(r.Context(), sectionEditFact(tenantID, actor, section))
		writeJSON(w, http.StatusOK, recordToSection(section))
	}
}

// submitReviewHandler returns a handler that submits a document for review.
// POST /api/v1/documents/{id}/reviews
func submitReviewHandler(workflow *ReviewWorkflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		actor := identity.ActorFromContext(r.Context())
		id := chi.URLParam(r, "id")

		var body struct {
			ReviewerID      string `json:"reviewerId"`
			DiffSummary     string `json:"diffSummary"`
			ChangedSections []int  `json:"changedSections"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		review, err := workflow.SubmitForReview(r.Context(), tenantID, id, actor, body.ReviewerID, SubmitOptions{
			DiffSummary:     body.DiffSummary,
			ChangedSections: body.ChangedSections,
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToReview(review))
	}
}

// pendingReviewHandler returns a handler that retrieves the pending review of
// a document. GET /api/v1/documents/{id}/reviews/pending
func pendingReviewHandler(workflow *ReviewWorkflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		id := chi.URLParam(r, "id")

		review, err := workflow.PendingReview(r.Context(), tenantID, id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToReview(review))
	}
}

// listReviewsHandler returns a handler that lists a document's review
// history. GET /api/v1/documents/{id}/reviews?status=...
func listReviewsHandler(workflow *ReviewWorkflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		id := chi.URLParam(r, "id")
		status := ReviewStatus(r.URL.Query().Get("status"))

		records, err := workflow.ListReviews(r.Context(), tenantID, id, status)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		reviews := make([]Review, len(records))
		for i := range records {
			reviews[i] = recordToReview(&records[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"reviews":   reviews,
			"totalSize": len(reviews),
		})
	}
}

// decideReviewHandler returns a handler that records a review decision.
// POST /api/v1/reviews/{id}/decision
func decideReviewHandler(workflow *ReviewWorkflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		actor := identity.ActorFromContext(r.Context())
		id := chi.URLParam(r, "id")

		var body struct {
			Decision      ReviewStatus `json:"decision"`
			Comments      string       `json:"comments"`
			ChangeRequest string       `json:"changeRequest"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		review, err := workflow.DecideReview(r.Context(), tenantID, id, body.Decision, body.Comments, body.ChangeRequest, actor)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToReview(review))
	}
}

// getReviewHandler returns a handler that retrieves a single review.
// GET /api/v1/reviews/{id}
func getReviewHandler(store *DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenancy.TenantIDFromContext(r.Context())
		id := chi.URLParam(r, "id")

		review, err := store.GetReview(tenantID, id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if review == nil {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		writeJSON(w, http.StatusOK, recordToReview(review))
	}
}

// writeEngineError maps engine error types to HTTP statuses: not-found to
// 404, state conflicts to 409, validation to 400, everything else to 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var nf *NotFoundError
	var se *StateError
	var ve *ValidationError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &se):
		writeErrorCode(w, http.StatusConflict, se.Code, se.Message)
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	default:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}
