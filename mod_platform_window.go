package snowscene

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowState is the shared window resource. Headless apps add a WindowState
// without a window and drive resizes through Resize.
type WindowState struct {
	window *glfw.Window
	Title  string

	mu            sync.Mutex
	width, height int
	resized       bool
}

// Resize records a new framebuffer size; the render module applies it on the
// next frame.
func (s *WindowState) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.resized = true
	s.mu.Unlock()
}

// Size is the last recorded framebuffer size.
func (s *WindowState) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// TakeResize returns the pending size, if any, and clears it.
func (s *WindowState) TakeResize() (width, height int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resized {
		return 0, 0, false
	}
	s.resized = false
	return s.width, s.height, true
}

// PlatformWindowModule opens the GLFW window every renderer and input module
// shares. Install is idempotent.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

// NewPlatformWindow fills in defaults for zero fields.
func NewPlatformWindow(cfg WindowConfig) PlatformWindowModule {
	mod := PlatformWindowModule{Width: cfg.Width, Height: cfg.Height, Title: cfg.Title}
	if mod.Width <= 0 {
		mod.Width = 1280
	}
	if mod.Height <= 0 {
		mod.Height = 720
	}
	if mod.Title == "" {
		mod.Title = "Snow Scene"
	}
	return mod
}

func (mod PlatformWindowModule) Install(app *App, cmd *Commands) {
	if _, ok := Resource[WindowState](app); ok {
		return
	}

	ws, err := createWindowState(mod.Width, mod.Height, mod.Title)
	if err != nil {
		cmd.Fail(err)
		return
	}
	app.addResources(ws)
	app.Logger().Infof("created window (%dx%d) '%s'", mod.Width, mod.Height, mod.Title)

	app.UseSystem(
		System(windowEventsSystem).
			InStage(Prelude).
			RunAlways(),
	)
	app.UseSystem(
		System(windowCloseSystem).
			InStage(Finale).
			RunAlways(),
	)
}

func createWindowState(width, height int, title string) (*WindowState, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	ws := &WindowState{window: win, Title: title}
	fw, fh := win.GetFramebufferSize()
	ws.Resize(fw, fh)
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		ws.Resize(w, h)
	})
	return ws, nil
}

func windowEventsSystem(ws *WindowState, cmd *Commands) {
	glfw.PollEvents()
	if ws.window.ShouldClose() {
		cmd.Quit()
	}
}

func windowCloseSystem(ws *WindowState, cmd *Commands) {
	if cmd.app.done && ws.window != nil {
		ws.window.Destroy()
		ws.window = nil
		glfw.Terminate()
	}
}
