//go:build gui

// Package gui is the desktop indicator: a frameless always-on-top window
// showing the eye, and a system tray menu with recent transcriptions.
package gui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/go-gl/glfw/v3.3/glfw"

	"murmur/history"
	"murmur/log"
	"murmur/session"
)

type App struct {
	fyneApp fyne.App
	desk    desktop.App
	window  fyne.Window
	eye     *EyeWidget
	menu    *fyne.Menu
	onReady func()
	posX    int
	posY    int

	mu       sync.Mutex
	items    []history.Item
	copyText func(string) error
	clear    func()
	onQuit   func()
}

// NewApp returns an App that calls onReady on its own goroutine once the
// event loop is about to start.
func NewApp(onReady func()) *App {
	return &App{onReady: onReady}
}

// OnQuit sets what the tray's Quit entry does. Without it Quit stops the
// event loop directly.
func (a *App) OnQuit(fn func()) {
	a.mu.Lock()
	a.onQuit = fn
	a.mu.Unlock()
}

// BindHistory lists h in the tray menu. Clicking an entry copies it.
func (a *App) BindHistory(h *history.Store, copyText func(string) error) {
	a.mu.Lock()
	a.items = h.Items()
	a.copyText = copyText
	a.clear = h.Clear
	a.mu.Unlock()
	h.OnChange(func(items []history.Item) {
		a.mu.Lock()
		a.items = items
		a.mu.Unlock()
		fyne.Do(a.refreshMenu)
	})
	fyne.Do(a.refreshMenu)
}

// Run must be called from the main OS thread. It blocks until Quit.
func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.murmur.overlay")
	a.fyneApp.Settings().SetTheme(&overlayTheme{accent: color.RGBA{255, 59, 48, 255}})

	if desk, ok := a.fyneApp.(desktop.App); ok {
		a.desk = desk
		a.menu = fyne.NewMenu("murmur")
		a.refreshMenu()
		desk.SetSystemTrayMenu(a.menu)
		desk.SetSystemTrayIcon(fyne.NewStaticResource("murmur.png", iconIdle))
	}

	screenW, screenH := 1920, 1080
	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		_, _, screenW, screenH = monitor.GetWorkarea()
	}

	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		a.window = drv.CreateSplashWindow()
	} else {
		a.window = a.fyneApp.NewWindow("murmur")
	}
	a.eye = NewEyeWidget()
	a.window.SetContent(a.eye)
	a.window.SetFixedSize(true)
	a.window.SetPadded(false)

	size := a.eye.MinSize()
	a.window.Resize(size)

	// bottom centre, clear of the dock
	a.posX = (screenW - int(size.Width)) / 2
	a.posY = screenH - int(size.Height) - 20

	go a.onReady()

	// the window stays hidden until the first Show
	a.fyneApp.Run()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		fyne.Do(a.fyneApp.Quit)
	}
}

func (a *App) Show() {
	fyne.Do(func() {
		if a.window == nil {
			return
		}
		a.setTrayIcon(iconRec)
		if w := glfw.GetCurrentContext(); w != nil {
			w.SetPos(a.posX, a.posY)
			w.SetAttrib(glfw.FocusOnShow, glfw.False)
			w.SetAttrib(glfw.Floating, glfw.True)
			w.Show()
			return
		}
		a.window.Show()
	})
}

func (a *App) Hide() {
	fyne.Do(func() {
		a.setTrayIcon(iconIdle)
		if a.window != nil {
			a.window.Hide()
		}
	})
}

// Render only stores the frame. The eye redraws on its own ticker.
func (a *App) Render(f session.Frame) {
	if a.eye != nil {
		a.eye.SetFrame(f)
	}
}

func (a *App) setTrayIcon(png []byte) {
	if a.desk != nil {
		a.desk.SetSystemTrayIcon(fyne.NewStaticResource("murmur.png", png))
	}
}

// refreshMenu runs on the fyne thread.
func (a *App) refreshMenu() {
	if a.menu == nil {
		return
	}
	a.mu.Lock()
	items := a.items
	a.mu.Unlock()

	var entries []*fyne.MenuItem
	if len(items) == 0 {
		empty := fyne.NewMenuItem("No transcriptions yet", nil)
		empty.Disabled = true
		entries = append(entries, empty)
	}
	for _, it := range items {
		text := it.Text
		entries = append(entries, fyne.NewMenuItem(menuLabel(text), func() { a.copy(text) }))
	}

	clearItem := fyne.NewMenuItem("Clear history", a.clearHistory)
	clearItem.Disabled = len(items) == 0
	quit := fyne.NewMenuItem("Quit", a.quit)
	quit.IsQuit = true

	entries = append(entries, fyne.NewMenuItemSeparator(), clearItem, quit)
	a.menu.Items = entries
	a.menu.Refresh()
}

func (a *App) copy(text string) {
	a.mu.Lock()
	copyText := a.copyText
	a.mu.Unlock()
	if copyText == nil {
		return
	}
	if err := copyText(text); err != nil {
		log.Warnf("tray copy failed: %v", err)
	}
}

func (a *App) clearHistory() {
	a.mu.Lock()
	fn := a.clear
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (a *App) quit() {
	a.mu.Lock()
	onQuit := a.onQuit
	a.mu.Unlock()
	if onQuit != nil {
		onQuit()
		return
	}
	a.fyneApp.Quit()
}
