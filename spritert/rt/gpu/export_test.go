package gpu

import "reflect"

// StorePipeline places p under T's slot without constructing it.
func StorePipeline[T any](ctx *Context, p Pipeline) {
	ctx.registry.pipelines.Store(reflect.TypeFor[T](), p)
}
