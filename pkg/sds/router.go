package sds

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/solaius/sds-registry/pkg/audit"
)

// Engine bundles the lifecycle components over one store.
type Engine struct {
	Store    *DocumentStore
	Sections *SectionEditor
	Versions *VersionManager
	Reviews  *ReviewWorkflow
	Search   *SearchService
}

// NewEngine wires the section editor, version manager, review workflow, and
// search service around a shared store and audit recorder.
func NewEngine(store *DocumentStore, recorder audit.Recorder, logger *slog.Logger) *Engine {
	machine := NewLifecycleMachine()
	return &Engine{
		Store:    store,
		Sections: NewSectionEditor(store, logger),
		Versions: NewVersionManager(store, recorder, logger),
		Reviews:  NewReviewWorkflow(store, recorder, machine, logger),
		Search:   NewSearchService(store, logger),
	}
}

// NewRouter creates a chi router with the document lifecycle API routes.
// Tenancy and identity middleware are the caller's responsibility.
func NewRouter(engine *Engine) chi.Router {
	r := chi.NewRouter()

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", createDocumentHandler(engine.Versions))
		r.Get("/search", searchDocumentsHandler(engine.Search))
		r.Get("/latest/{number}", getLatestDocumentHandler(engine.Versions))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getDocumentHandler(engine.Versions))
			r.Patch("/", patchDocumentHandler(engine.Versions))
			r.Get("/versions", listVersionsHandler(engine.Versions))
			r.Post("/versions", createVersionHandler(engine.Versions))
			r.Put("/sections/{number}", updateSectionHandler(engine.Sections, engine.Versions))
			r.Get("/reviews", listReviewsHandler(engine.Reviews))
			r.Post("/reviews", submitReviewHandler(engine.Reviews))
			r.Get("/reviews/pending", pendingReviewHandler(engine.Reviews))
		})
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/{id}", getReviewHandler(engine.Store))
		r.Post("/{id}/decision", decideReviewHandler(engine.Reviews))
	})

	return r
}
