package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papapumpkin/larder/internal/logging"
	"github.com/papapumpkin/larder/internal/metrics"
	"github.com/papapumpkin/larder/internal/position"
	"github.com/papapumpkin/larder/internal/store"
	"github.com/papapumpkin/larder/internal/telemetry"
)

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// WithEvents sets the telemetry emitter.
func WithEvents(e *telemetry.Emitter) Option {
	return func(im *Importer) { im.events = e }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

// Importer writes documents into a store.
type Importer struct {
	store   *store.Store
	log     *slog.Logger
	events  *telemetry.Emitter
	metrics *metrics.Metrics
}

// New returns an Importer writing to st.
func New(st *store.Store, opts ...Option) *Importer {
	im := &Importer{store: st, log: logging.Discard()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import creates a new recipe from doc. The recipe and all its entries are
// written in one transaction; when any level runs out of positions nothing
// is stored and the error wraps position.ErrLevelExhausted.
func (im *Importer) Import(ctx context.Context, doc *Document) (store.Recipe, error) {
	if err := doc.Validate(); err != nil {
		im.metrics.Imported(false)
		return store.Recipe{}, err
	}

	entries := doc.Entries()
	im.log.Debug("importing recipe", "title", doc.Title, "source", doc.Source, "entries", entries)

	var recipe store.Recipe
	err := im.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		recipe, err = tx.CreateRecipe(ctx, store.Recipe{
			Title:           doc.Title,
			Description:     doc.Description,
			Instructions:    doc.Instructions,
			Notes:           doc.Notes,
			Author:          doc.Author,
			Cuisine:         doc.Cuisine,
			Categories:      doc.Categories,
			Yields:          doc.Yields,
			YieldUnit:       doc.YieldUnit,
			URL:             doc.URL,
			Rating:          doc.Rating,
			PreparationTime: durationOf(doc.PreparationTime),
			CookingTime:     durationOf(doc.CookingTime),
			TotalTime:       durationOf(doc.TotalTime),
		})
		if err != nil {
			return err
		}

		w := &writer{tx: tx, alloc: position.NewAllocator(tx), recipeID: recipe.ID}
		for _, g := range doc.Groups {
			p, err := w.alloc.AllocateGroup(ctx, recipe.ID)
			if err != nil {
				return fmt.Errorf("group %q: %w", g.Name, err)
			}
			if _, err := tx.InsertEntry(ctx, store.NewEntry{
				RecipeID: recipe.ID, Position: p, Ingredient: g.Name, Group: true,
			}); err != nil {
				return err
			}
			if err := w.items(ctx, p, g.Items); err != nil {
				return fmt.Errorf("group %q: %w", g.Name, err)
			}
		}
		if err := w.items(ctx, position.GlobalGroupPosition(), doc.Items); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		im.metrics.Imported(false)
		if errors.Is(err, position.ErrLevelExhausted) {
			im.log.Warn("import aborted", "title", doc.Title, "source", doc.Source, "error", err)
		}
		return store.Recipe{}, fmt.Errorf("import %q: %w", doc.Title, err)
	}

	im.metrics.Imported(true)
	im.log.Info("recipe imported", "recipe", recipe.ID, "title", recipe.Title, "entries", entries)
	if err := im.events.Emit(telemetry.Event{
		Kind:     telemetry.KindRecipeImported,
		RecipeID: recipe.ID,
		Data:     map[string]any{"title": recipe.Title, "source": doc.Source, "entries": entries},
	}); err != nil {
		im.log.Warn("telemetry emit failed", "error", err)
	}
	return recipe, nil
}

// writer inserts items below a parent, recursing into alternatives.
type writer struct {
	tx       *store.Tx
	alloc    *position.Allocator
	recipeID int64
}

func (w *writer) items(ctx context.Context, parent position.Position, items []Item) error {
	for _, it := range items {
		p, err := w.alloc.AllocateIngredient(ctx, w.recipeID, parent)
		if err != nil {
			return fmt.Errorf("%q: %w", it.Ingredient, err)
		}
		if _, err := w.tx.InsertEntry(ctx, store.NewEntry{
			RecipeID:    w.recipeID,
			Position:    p,
			Ingredient:  it.Ingredient,
			Name:        it.Name,
			Unit:        it.Unit,
			Amount:      it.Amount,
			RangeAmount: it.RangeAmount,
			Optional:    it.Optional,
		}); err != nil {
			return err
		}

		children := it.Or
		if position.IsAlternative(p) {
			children = it.And
		}
		if err := w.items(ctx, p, children); err != nil {
			return err
		}
	}
	return nil
}
