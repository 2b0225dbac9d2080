// Package oracle resolves fill values for field descriptors.
package oracle

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/model"
)

// Oracle maps a batch of descriptors to fill values. Implementations return
// an empty map on any failure and never return an error.
type Oracle interface {
	Resolve(ctx context.Context, profileSlice any, batch []model.FieldDescriptor, mode Mode) map[RequestKey]model.Value
}

// Resolution is the result of resolving one batch.
type Resolution struct {
	Values map[RequestKey]model.Value
	// Index maps each key to the position of its descriptor in the batch.
	Index      map[RequestKey]int
	Collisions []RequestKey
}

// Lookup returns the value resolved for d, if any.
func (r Resolution) Lookup(d model.FieldDescriptor) (model.Value, bool) {
	v, ok := r.Values[KeyOf(d)]
	return v, ok
}

// Empty reports whether nothing was resolved.
func (r Resolution) Empty() bool {
	return len(r.Values) == 0
}

// Resolver wraps an Oracle with key correlation and collision checks.
type Resolver struct {
	oracle Oracle
	log    *zap.Logger
}

// NewResolver creates a Resolver over o.
func NewResolver(o Oracle, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.L()
	}
	return &Resolver{oracle: o, log: log}
}

// Resolve asks the oracle for every descriptor in batch. Descriptors whose
// keys collide get no value.
func (r *Resolver) Resolve(ctx context.Context, profileSlice any, batch []model.FieldDescriptor, mode Mode) Resolution {
	res := Resolution{
		Values: map[RequestKey]model.Value{},
		Index:  make(map[RequestKey]int, len(batch)),
	}
	if len(batch) == 0 {
		return res
	}

	seen := make(map[RequestKey]bool, len(batch))
	for i, d := range batch {
		k := KeyOf(d)
		if _, dup := res.Index[k]; dup {
			if !seen[k] {
				res.Collisions = append(res.Collisions, k)
				seen[k] = true
			}
			continue
		}
		res.Index[k] = i
	}
	for _, k := range res.Collisions {
		r.log.Warn("oracle: request key collision", zap.String("key", string(k)))
	}

	values := r.oracle.Resolve(ctx, profileSlice, batch, mode)
	for k, v := range values {
		if _, known := res.Index[k]; !known || seen[k] {
			continue
		}
		res.Values[k] = v
	}

	r.log.Debug("oracle: batch resolved",
		zap.String("mode", string(mode)),
		zap.Int("fields", len(batch)),
		zap.Int("resolved", len(res.Values)),
	)
	return res
}
