package gekko2d

// RendererName identifies a concrete renderer module.
// Keep names aligned with ensureSingleRenderer tags.
type RendererName string

const (
	RendererSprites RendererName = "sprites"
)

// Renderer is an alias to Module for semantic clarity in APIs.
type Renderer interface {
	Module
}

// ensureWindowResource guarantees a single shared WindowState resource exists.
// If missing, it creates one with provided overrides or sensible defaults, and
// schedules event polling and teardown.
func ensureWindowResource(app *App, width, height int, title string) *WindowState {
	if ws, ok := Resource[WindowState](app); ok {
		return ws
	}
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Gekko2D"
	}
	ws := createWindowState(width, height, title)
	app.addResources(ws)
	app.UseStage(windowShutdown, AfterStage(Finale))
	app.UseSystem(System(windowEventsSystem).InStage(PreUpdate))
	app.UseSystem(System(windowTeardownSystem).InStage(windowShutdown))
	app.Logger().Infof("Created shared window (%dx%d) '%s'", width, height, title)
	return ws
}

// UseRenderer installs exactly one renderer module, enforcing exclusivity via ensureSingleRenderer.
// Usage:
//
//	app.UseRenderer(RendererSprites, SpriteRenderModule{})
func (app *App) UseRenderer(name RendererName, mod Renderer) *App {
	ensureSingleRenderer(app, string(name))
	app.Logger().Infof("Renderer selected: %s", name)
	app.UseModules(mod)
	return app
}

// UseSprites selects the sprite renderer with a window of the given size.
// For other options, call UseRenderer with a configured SpriteRenderModule.
func (app *App) UseSprites(width, height int, title string) *App {
	return app.UseRenderer(RendererSprites, SpriteRenderModule{
		WindowWidth:  width,
		WindowHeight: height,
		WindowTitle:  title,
	})
}
