package optimistic

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Shape tells the engine how to handle one entity type.
type Shape[T any] struct {
	// Name is the entity name used in errors and log lines.
	Name string
	// ID extracts the record's stable identifier.
	ID func(T) string
	// WithTempID returns the draft completed with a locally generated
	// temporary identifier and best-effort placeholders for
	// server-computed fields.
	WithTempID func(T) T
	// Clone deep-copies a record so a captured rollback value cannot alias
	// the live one.
	Clone func(T) T
	// Prepend inserts optimistic creates at the head of the collection
	// instead of the tail.
	Prepend bool
}

// Remote binds the engine to the entity's remote calls.
type Remote[T any] struct {
	// Create sends the draft and returns the canonical record, including
	// the server-assigned identifier and computed fields.
	Create func(ctx context.Context, draft T) (T, error)
	// Update sends the full patched record. A nil result means the service
	// acknowledged without returning canonical fields.
	Update func(ctx context.Context, id string, record T) (*T, error)
	// Delete removes the record server-side.
	Delete func(ctx context.Context, id string) error
	// Get refetches one record, used by the coarse rollback path after a
	// failed compound procedure.
	Get func(ctx context.Context, id string) (T, error)
}

// Engine runs the optimistic mutation pipeline for one entity collection:
// apply locally, call the service, then confirm or roll back exactly what was
// touched. Every failed mutation leaves the collection field-for-field,
// position-for-position as it was before the attempt, and the error is
// returned to the caller for display.
type Engine[T any] struct {
	col      *Collection[T]
	shape    Shape[T]
	remote   Remote[T]
	validate func(T) error
	log      zerolog.Logger
}

// NewEngine assembles an engine. validate may be nil for entities with no
// locally-checkable invariants.
func NewEngine[T any](col *Collection[T], shape Shape[T], remote Remote[T], validate func(T) error, log zerolog.Logger) *Engine[T] {
	return &Engine[T]{
		col:      col,
		shape:    shape,
		remote:   remote,
		validate: validate,
		log:      log.With().Str("entity", shape.Name).Logger(),
	}
}

// Collection returns the engine's backing collection.
func (e *Engine[T]) Collection() *Collection[T] { return e.col }

// Create synthesizes a temporary record, inserts it, and issues the remote
// create. On success the temporary record is replaced wholesale by the
// canonical one (the identifier changes); on failure it is removed before
// the error is returned. The temporary identifier is never reused.
func (e *Engine[T]) Create(ctx context.Context, draft T) (T, error) {
	var zero T
	if e.validate != nil {
		if err := e.validate(draft); err != nil {
			return zero, err
		}
	}

	tmp := e.shape.WithTempID(draft)
	tmpID := e.shape.ID(tmp)
	e.col.Insert(tmp, e.shape.Prepend)

	canonical, err := e.remote.Create(ctx, tmp)
	if err != nil {
		e.col.Remove(tmpID)
		return zero, fmt.Errorf("create %s: %w", e.shape.Name, err)
	}

	e.col.Swap(tmpID, canonical)
	e.log.Debug().Str("tmp", tmpID).Str("id", e.shape.ID(canonical)).Msg("create confirmed")
	return canonical, nil
}

// Update patches the record in place after capturing it, then issues the
// remote update. On success any canonical fields the service returns (for
// example recomputed timestamps) are merged without a refetch. On failure
// exactly the captured record is restored at its identifier; records mutated
// concurrently by other in-flight operations are left untouched.
func (e *Engine[T]) Update(ctx context.Context, id string, patch func(T) T) (T, error) {
	var zero T
	cur, ok := e.col.Get(id)
	if !ok {
		return zero, fmt.Errorf("update %s %s: %w", e.shape.Name, id, ErrNoSuchRecord)
	}

	prior := e.shape.Clone(cur)
	patched := patch(e.shape.Clone(cur))
	if e.validate != nil {
		if err := e.validate(patched); err != nil {
			return zero, err
		}
	}

	e.col.Swap(id, patched)

	res, err := e.remote.Update(ctx, id, patched)
	if err != nil {
		e.col.Swap(id, prior)
		return zero, fmt.Errorf("update %s %s: %w", e.shape.Name, id, err)
	}

	if res != nil {
		e.col.Swap(id, *res)
		return *res, nil
	}
	return patched, nil
}

// Delete removes the record after capturing it and its position, then issues
// the remote delete. On failure the record is reinserted at its captured
// index, or at the end if the index is no longer valid.
func (e *Engine[T]) Delete(ctx context.Context, id string) error {
	rec, idx, ok := e.col.Remove(id)
	if !ok {
		return fmt.Errorf("delete %s %s: %w", e.shape.Name, id, ErrNoSuchRecord)
	}

	if err := e.remote.Delete(ctx, id); err != nil {
		e.col.InsertAt(idx, rec)
		return fmt.Errorf("delete %s %s: %w", e.shape.Name, id, err)
	}
	return nil
}

// Procedure runs a named remote procedure whose server-side effects the
// client cannot fully predict. It applies the minimal optimistic patch to the
// primary record only, then invokes call. On success the returned record, if
// any, replaces the local one and the caller refreshes the dependent
// relation. On failure the optimistic patch was known to be incomplete, so
// instead of a targeted rollback the record is refetched from the service;
// the original procedure error is returned either way.
func (e *Engine[T]) Procedure(ctx context.Context, id string, patch func(T) T, call func(ctx context.Context) (*T, error)) error {
	cur, ok := e.col.Get(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", e.shape.Name, id, ErrNoSuchRecord)
	}

	e.col.Swap(id, patch(e.shape.Clone(cur)))

	res, err := call(ctx)
	if err != nil {
		fresh, ferr := e.remote.Get(ctx, id)
		switch {
		case ferr == nil:
			e.col.Swap(id, fresh)
		default:
			// The refetch is best-effort recovery; the procedure
			// error is the one the caller must see.
			e.log.Warn().Str("id", id).Err(ferr).Msg("post-failure refetch failed")
		}
		return fmt.Errorf("%s %s: %w", e.shape.Name, id, err)
	}

	if res != nil {
		e.col.Swap(id, *res)
	}
	return nil
}
