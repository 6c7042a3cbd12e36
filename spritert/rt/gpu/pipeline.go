package gpu

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrPipelineType is returned when the pipeline cached for a type is not of
// that type.
var ErrPipelineType = errors.New("gpu: pipeline type mismatch")

// Pipeline is a draw strategy that builds its GPU state from a Context.
// Pipelines are stored per concrete type, at most one instance each.
type Pipeline interface {
	Init(ctx *Context) error
	Release()
}

// GetPipeline returns the Context's pipeline of type T, constructing it with
// Init on first use.
//
//	sp, err := gpu.GetPipeline[sprite.Pipeline](ctx)
func GetPipeline[T any, P interface {
	*T
	Pipeline
}](ctx *Context) (P, error) {
	key := reflect.TypeFor[T]()
	stored, err := ctx.registry.pipeline(key, func() (Pipeline, error) {
		p := P(new(T))
		if err := p.Init(ctx); err != nil {
			return nil, fmt.Errorf("init pipeline %s: %w", key, err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	typed, ok := stored.(P)
	if !ok {
		return nil, fmt.Errorf("%w: want %s, have %T", ErrPipelineType, reflect.TypeFor[P](), stored)
	}
	return typed, nil
}

// HasPipeline reports whether a pipeline of type T has been constructed.
func HasPipeline[T any](ctx *Context) bool {
	_, ok := ctx.registry.pipelines.Load(reflect.TypeFor[T]())
	return ok
}
