package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// ReconcileOptions controls what the reconciler may remove.
type ReconcileOptions struct {
	// RemoveStaleDocuments deletes rows whose collection is missing once
	// they are older than Grace. Off by default.
	RemoveStaleDocuments bool
	Grace                time.Duration
	DryRun               bool
}

// ReconcileReport lists what was (or, in a dry run, would be) removed.
type ReconcileReport struct {
	OrphanCollections []string
	StaleDocuments    []int64
	DryRun            bool
}

// Reconciler repairs divergence between document rows and collections
// left behind by interrupted ingests or deletes.
type Reconciler struct {
	index  ports.VectorIndex
	store  ports.MetadataStore
	opts   ReconcileOptions
	logger arbor.ILogger
	now    func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(index ports.VectorIndex, store ports.MetadataStore, opts ReconcileOptions, logger arbor.ILogger) *Reconciler {
	return &Reconciler{index: index, store: store, opts: opts, logger: logger, now: time.Now}
}

// Run compares rows and collections once.
func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{DryRun: r.opts.DryRun}

	// Collections first: ingest writes the row before the collection, so
	// every collection in this snapshot already has its row visible below.
	collections, err := r.index.ListCollections(ctx)
	if err != nil {
		return report, entities.Upstream("listing collections", err)
	}
	docs, err := r.store.ListDocuments(ctx)
	if err != nil {
		return report, err
	}

	owned := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		owned[d.CollectionID] = struct{}{}
	}
	present := make(map[string]struct{}, len(collections))
	for _, name := range collections {
		present[name] = struct{}{}
	}

	for _, name := range collections {
		if !strings.HasPrefix(name, CollectionPrefix) {
			continue
		}
		if _, ok := owned[name]; ok {
			continue
		}
		report.OrphanCollections = append(report.OrphanCollections, name)
		if r.opts.DryRun {
			continue
		}
		if err := r.index.DeleteCollection(ctx, name); err != nil {
			return report, entities.Upstream("deleting orphan collection", err)
		}
		r.logger.Info().Str("collection", name).Msg("Removed orphan collection")
	}

	if r.opts.RemoveStaleDocuments {
		cutoff := r.now().Add(-r.opts.Grace)
		for _, d := range docs {
			if _, ok := present[d.CollectionID]; ok || d.CreatedAt.After(cutoff) {
				continue
			}
			report.StaleDocuments = append(report.StaleDocuments, d.ID)
			if r.opts.DryRun {
				continue
			}
			err := r.store.DeleteDocument(ctx, d.ID, func(ctx context.Context, doc entities.Document) error {
				return r.index.DeleteCollection(ctx, doc.CollectionID)
			})
			if errors.Is(err, entities.ErrDocumentNotFound) {
				continue
			}
			if err != nil {
				return report, err
			}
			r.logger.Info().Int64("document_id", d.ID).Str("collection", d.CollectionID).Msg("Removed document without collection")
		}
	}

	r.logger.Debug().
		Int("orphan_collections", len(report.OrphanCollections)).
		Int("stale_documents", len(report.StaleDocuments)).
		Bool("dry_run", r.opts.DryRun).
		Msg("Reconcile finished")
	return report, nil
}
