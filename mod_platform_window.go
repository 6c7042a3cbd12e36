package gekko2d

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// windowShutdown runs after Finale so renderers release GPU resources before
// the window goes away.
var windowShutdown = Stage{Name: "WindowShutdown", UpdateType: DynamicUpdate}

// WindowState is the shared GLFW window. Size fields track the framebuffer,
// which differs from the window size on high-DPI displays.
type WindowState struct {
	windowGlfw  *glfw.Window
	windowTitle string

	FramebufferWidth  int
	FramebufferHeight int
	resized           bool
}

func createWindowState(windowWidth int, windowHeight int, windowTitle string) *WindowState {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Important: tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		panic(err)
	}

	ws := &WindowState{
		windowGlfw:  win,
		windowTitle: windowTitle,
	}
	ws.FramebufferWidth, ws.FramebufferHeight = win.GetFramebufferSize()
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		ws.setFramebufferSize(width, height)
	})
	return ws
}

func (ws *WindowState) setFramebufferSize(width, height int) {
	if width == ws.FramebufferWidth && height == ws.FramebufferHeight {
		return
	}
	ws.FramebufferWidth, ws.FramebufferHeight = width, height
	ws.resized = true
}

// TakeResize reports whether the framebuffer changed size since the last call.
func (ws *WindowState) TakeResize() (width, height int, changed bool) {
	changed = ws.resized
	ws.resized = false
	return ws.FramebufferWidth, ws.FramebufferHeight, changed
}

func (ws *WindowState) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(ws.windowGlfw)
}

func (ws *WindowState) ShouldClose() bool {
	return ws.windowGlfw != nil && ws.windowGlfw.ShouldClose()
}

func (ws *WindowState) destroy() {
	if ws.windowGlfw == nil {
		return
	}
	ws.windowGlfw.Destroy()
	ws.windowGlfw = nil
	glfw.Terminate()
}

// PlatformWindowModule ensures a single shared GLFW window (WindowState) is created
// and made available as a resource for any renderer.
// Install is idempotent: if a WindowState resource already exists, it is reused.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

// NewPlatformWindow creates a module that provides a shared WindowState resource.
// If Width/Height are zero, sensible defaults are used.
func NewPlatformWindow(width, height int, title string) *PlatformWindowModule {
	return &PlatformWindowModule{
		Width:  width,
		Height: height,
		Title:  title,
	}
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	ensureWindowResource(app, m.Width, m.Height, m.Title)
}

// windowEventsSystem polls GLFW and stops the app once the window is asked to close.
func windowEventsSystem(cmd *Commands, ws *WindowState) {
	glfw.PollEvents()
	if ws.ShouldClose() {
		cmd.Exit()
	}
}

// windowTeardownSystem destroys the window after the final step.
func windowTeardownSystem(cmd *Commands, ws *WindowState) {
	if cmd.Exiting() {
		ws.destroy()
	}
}
