package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"murmur/history"
	"murmur/session"
)

// TUI message types
type visibleMsg bool
type historyMsg []history.Item
type endedMsg string
type alertMsg struct{ Title, Message string }
type tickMsg time.Time

// tuiInfo is the static part of the status column.
type tuiInfo struct {
	Mode   string // "[flac | openai (en)]"
	Device string // microphone device name
}

// tui is the terminal surface. Frames arrive at the animator's rate and are
// only sampled on the UI tick.
type tui struct {
	program *tea.Program

	mu    sync.Mutex
	frame session.Frame
}

func newTUI(info tuiInfo, hist *history.Store, copyText func(string) error) *tui {
	u := &tui{}
	m := tuiModel{
		info:     info,
		items:    hist.Items(),
		latest:   u.latest,
		copyText: copyText,
		clear:    hist.Clear,
	}
	u.program = tea.NewProgram(m, tea.WithAltScreen())
	hist.OnChange(func(items []history.Item) { u.program.Send(historyMsg(items)) })
	return u
}

func (u *tui) Run() error {
	_, err := u.program.Run()
	return err
}

func (u *tui) Quit() { u.program.Quit() }

func (u *tui) Show() { u.program.Send(visibleMsg(true)) }
func (u *tui) Hide() { u.program.Send(visibleMsg(false)) }

func (u *tui) Render(f session.Frame) {
	u.mu.Lock()
	u.frame = f
	u.mu.Unlock()
}

func (u *tui) latest() session.Frame {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.frame
}

func (u *tui) Alert(title, message string) {
	u.program.Send(alertMsg{Title: title, Message: message})
}

func (u *tui) SessionEnded(_ uint64, outcome string) {
	u.program.Send(endedMsg(outcome))
}

type tuiModel struct {
	info     tuiInfo
	latest   func() session.Frame
	copyText func(string) error
	clear    func()

	frameNo       int
	width, height int
	visible       bool
	view          session.Frame
	recStart      time.Time
	recSeconds    float64
	peakLevel     float64 // peak level during the current recording
	items         []history.Item
	alert         string
	lastOutcome   string
	notice        string
}

// Pre-computed pixel styles to avoid allocations in render loop
type palette struct {
	fg [16]lipgloss.Style
	bg [16][16]lipgloss.Style
}

func newPalette(colors []string) *palette {
	p := &palette{}
	for i, fg := range colors {
		if fg == "" {
			continue
		}
		p.fg[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
		for j, bg := range colors {
			if bg != "" {
				p.bg[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
			}
		}
	}
	return p
}

var (
	paletteRec  = newPalette([]string{"", "226", "220", "214", "208", "196", "160", "124", "88", "52", "236", "236", "236", "236", "255", "249"})
	paletteIdle = newPalette([]string{"", "231", "224", "217", "210", "160", "124", "88", "52", "236", "236", "236", "236", "236", "255", "249"})
	paletteBusy = newPalette([]string{"", "195", "159", "123", "87", "45", "39", "33", "25", "236", "236", "236", "236", "236", "255", "249"})

	busy = spinner.MiniDot
)

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "c":
			m.notice = m.copyNewest()
		case "x":
			if m.clear != nil {
				m.clear()
			}
			m.notice = "history cleared"
		}

	case tickMsg:
		m.frameNo++
		if m.latest != nil {
			m = m.observe(m.latest(), time.Time(msg))
		}
		return m, tuiTick()

	case visibleMsg:
		m.visible = bool(msg)

	case historyMsg:
		m.items = msg

	case alertMsg:
		m.alert = msg.Title + ": " + msg.Message

	case endedMsg:
		m.lastOutcome = strings.ReplaceAll(string(msg), "_", " ")
	}
	return m, nil
}

// observe adopts the latest frame and tracks the recording clock.
func (m tuiModel) observe(f session.Frame, now time.Time) tuiModel {
	if f.Phase == session.PhaseRecording {
		if m.view.Phase != session.PhaseRecording {
			m.recStart = now
			m.peakLevel = 0
			m.alert = ""
			m.notice = ""
		}
		m.recSeconds = now.Sub(m.recStart).Seconds()
		m.peakLevel = max(m.peakLevel, f.Level)
	}
	m.view = f
	return m
}

func (m tuiModel) copyNewest() string {
	if len(m.items) == 0 {
		return "nothing to copy"
	}
	if m.copyText == nil {
		return "clipboard unavailable"
	}
	if err := m.copyText(m.items[0].Text); err != nil {
		return "copy failed: " + err.Error()
	}
	return "copied to clipboard"
}

func (m tuiModel) statusLine() string {
	switch m.view.Phase {
	case session.PhaseRecording:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render(fmt.Sprintf("● REC %.1fs", m.recSeconds))
	case session.PhaseTranscribing:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Render(busy.Frames[m.frameNo%len(busy.Frames)] + " TRANSCRIBING")
	default:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ STANDBY")
	}
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const eyeWidth = 45
	eye := renderEye(m.frameNo, m.view)

	var infoLines []string
	infoLines = append(infoLines, m.statusLine())
	// Voice warning after 1s of recording without signal
	if m.view.Phase == session.PhaseRecording && m.recSeconds > 1.0 && m.peakLevel < 0.02 {
		infoLines = append(infoLines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Render("  ⚠ no voice detected"))
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	if m.info.Mode != "" {
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.info.Mode))
	}
	if m.info.Device != "" {
		infoLines = append(infoLines, dim.Render("mic: "+m.info.Device))
	}
	if m.lastOutcome != "" {
		infoLines = append(infoLines, dim.Render("last: "+m.lastOutcome))
	}
	if m.alert != "" {
		for _, line := range wrapText("⚠ "+m.alert, eyeWidth-2) {
			infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render(line))
		}
	}
	if m.notice != "" {
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render(m.notice))
	}

	infoLines = append(infoLines, "")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	infoLines = append(infoLines,
		boldStyle.Render("Ctrl+Shift+Space")+helpStyle.Render(" hold to dictate"),
		boldStyle.Render("c")+helpStyle.Render(" copy last  ")+boldStyle.Render("x")+helpStyle.Render(" clear  ")+boldStyle.Render("q")+helpStyle.Render(" quit"),
		helpStyle.Render("murmur "+version),
	)

	for _, line := range infoLines {
		eye += line + "\n"
	}
	eyeLines := strings.Split(eye, "\n")

	logWidth := m.width - eyeWidth - 1
	if logWidth < 20 {
		logWidth = 20
	}
	wrapWidth := max(logWidth-2, 10)

	var logContent strings.Builder
	if len(m.items) > 0 {
		title := lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")).
			Render(fmt.Sprintf("Recent transcriptions (%d)", len(m.items)))
		logContent.WriteString(title + "\n\n")

		stampStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
		for _, it := range m.items {
			logContent.WriteString(stampStyle.Render(it.Timestamp.Local().Format("15:04:05")) + "\n")
			for _, line := range wrapText(it.Text, wrapWidth) {
				logContent.WriteString(textStyle.Render(line) + "\n")
			}
			logContent.WriteString("\n")
		}
	} else {
		logContent.WriteString(dim.Render("No transcriptions yet"))
	}

	logPanel := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(logContent.String())

	// Pad eye panel to full height (eye at top)
	eyePadded := make([]string, m.height)
	for i := range eyePadded {
		if i < len(eyeLines) {
			eyePadded[i] = eyeLines[i]
		} else {
			eyePadded[i] = strings.Repeat(" ", eyeWidth-1)
		}
	}

	eyePanel := lipgloss.NewStyle().
		Width(eyeWidth - 1).
		Height(m.height).
		Render(strings.Join(eyePadded, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, eyePanel, logPanel)
}

// renderEye draws the indicator: the overlay progress opens the eye, the
// input level makes it breathe while recording.
func renderEye(frame int, f session.Frame) string {
	const charsW = 44
	const charsH = 15
	const pixW = charsW
	const pixH = charsH * 2

	centerX := float64(pixW) / 2
	centerY := float64(pixH) / 2

	var breathe float64
	pal := paletteIdle
	switch f.Phase {
	case session.PhaseRecording:
		breathe = math.Sin(float64(frame)*0.10)*0.03 + f.Level*0.6 - 0.05
		pal = paletteRec
	case session.PhaseTranscribing:
		breathe = math.Sin(float64(frame)*0.25)*0.06 - 0.02
		pal = paletteBusy
	default:
		breathe = math.Sin(float64(frame)*0.08)*0.02 - 0.05
	}
	open := 0.35 + 0.65*math.Max(0, math.Min(1, f.Progress))

	pixels := make([][]int, pixH)
	for i := range pixels {
		pixels[i] = make([]int, pixW)
	}

	type ring struct {
		radius     float64
		breatheAmt float64
		colorIdx   int
	}

	rings := []ring{
		{0.6, 0.10, 1},
		{1.3, 0.12, 2},
		{2.0, 0.15, 3},
		{2.8, 0.35, 4},
		{3.5, 0.40, 5},
		{4.2, 0.38, 6},
		{5.0, 0.30, 7},
		{5.8, 0.15, 8},
		{6.5, 0.03, 9},
		{7.2, 0.0, 10},
		{8.0, 0.0, 11},
		{10.0, 0.0, 12},
		{12.0, 0.0, 13},
	}

	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			dist := math.Sqrt(dx*dx + dy*dy)
			for i, r := range rings {
				radius := r.radius + breathe*r.breatheAmt*20
				if radius > 10.0 {
					radius = 10.0
				}
				// the outer casing keeps its size, the iris opens
				if i < 9 {
					radius *= open
				}
				if dist < radius {
					pixels[y][x] = r.colorIdx
					break
				}
			}
		}
	}

	// Glass reflections
	type spot struct {
		ox, oy float64
		radius float64
		color  int
	}
	dSide := 9.0
	dSide2 := 7.2
	dTop := 10.0
	dTop2 := 8.2
	spots := []spot{
		{-dSide * 0.707, -dSide * 0.707, 0.7, 14},
		{-dSide2 * 0.707, -dSide2 * 0.707, 0.4, 15},
		{0, -dTop, 0.8, 14},
		{0, -dTop2, 0.6, 15},
		{dSide * 0.707, -dSide * 0.707, 0.7, 14},
		{dSide2 * 0.707, -dSide2 * 0.707, 0.4, 15},
		{0, -2.0, 0.6, 14},
	}
	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			px := float64(x) - centerX
			py := float64(y) - centerY
			for _, s := range spots {
				dx := px - s.ox
				dy := py - s.oy
				rLen := math.Sqrt(s.ox*s.ox + s.oy*s.oy)
				if rLen < 0.001 {
					rLen = 1
				}
				tx, ty := -s.oy/rLen, s.ox/rLen
				dt := dx*tx + dy*ty
				dn := dx*(-ty) + dy*tx
				if (dt*dt)/9.0+dn*dn < s.radius*s.radius {
					pixels[y][x] = s.color
				}
			}
		}
	}

	var result strings.Builder
	for cy := 0; cy < charsH; cy++ {
		for cx := 0; cx < charsW; cx++ {
			top := pixels[cy*2][cx]
			bot := pixels[cy*2+1][cx]
			switch {
			case top == 0 && bot == 0:
				result.WriteString(" ")
			case top == bot:
				result.WriteString(pal.fg[top].Render("█"))
			case bot == 0:
				result.WriteString(pal.fg[top].Render("▀"))
			case top == 0:
				result.WriteString(pal.fg[bot].Render("▄"))
			default:
				result.WriteString(pal.bg[top][bot].Render("▀"))
			}
		}
		result.WriteString("\n")
	}
	return result.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	runes := []rune(text)
	var lines []string
	for len(runes) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = []rune(strings.TrimLeft(string(runes[splitAt:]), " "))
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
