// Package tui is a terminal front end for the shift calculator. Keystrokes
// edit a widget.Controls value; redraws go through a frame.Loop so a burst
// of typing costs one recompute per frame.
package tui

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/aoi-shift/internal/frame"
	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/widget"
)

// Field is the control that has keyboard focus.
type Field int

const (
	FieldWavelength Field = iota
	FieldPreset
	FieldIndex
	FieldAngle
	fieldCount
)

// Step sizes for the arrow keys.
const (
	wavelengthStepNm = 1.0
	indexStep        = 0.01
	angleStepDeg     = 1.0
)

// App owns the screen, the controls and the redraw loop.
type App struct {
	screen tcell.Screen
	loop   *frame.Loop

	mu         sync.Mutex
	controls   *widget.Controls
	strictness optics.Strictness
	focus      Field
	snapshot   widget.Snapshot
}

// New builds an app drawing on screen. The screen must already be
// initialized.
func New(screen tcell.Screen, controls *widget.Controls, s optics.Strictness, frameEvery time.Duration) *App {
	a := &App{
		screen:     screen,
		controls:   controls,
		strictness: s,
	}
	a.loop = frame.NewLoop(frameEvery, a.Render)
	return a
}

// Loop exposes the redraw scheduler.
func (a *App) Loop() *frame.Loop {
	return a.loop
}

// Focus returns the focused field.
func (a *App) Focus() Field {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.focus
}

// Snapshot returns the result of the last recompute.
func (a *App) Snapshot() widget.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// Render recomputes from the current controls and redraws the screen. It
// is the frame callback.
func (a *App) Render() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = widget.Update(a.controls, a.strictness)
	a.draw()
}

// Run paints once, then handles events until q/Esc/Ctrl-C or ctx ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.loop.Run(ctx)
	a.loop.Flush()

	events := make(chan tcell.Event, 32)
	go func() {
		defer close(events)
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || !a.HandleEvent(ev) {
				slog.Debug("tui exiting", "frames", a.loop.Frames())
				return
			}
		}
	}
}

// change says how an edit should reach the screen.
type change int

const (
	noChange     change = iota
	inputChange         // live edit: coalesce onto the next frame
	commitChange        // committed edit: recompute now
)

// HandleEvent applies one terminal event. It returns false when the user
// asked to quit.
func (a *App) HandleEvent(ev tcell.Event) bool {
	var ch change

	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
			(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			return false
		}
		a.mu.Lock()
		ch = a.handleKey(ev)
		a.mu.Unlock()

	case *tcell.EventResize:
		a.screen.Sync()
		ch = inputChange
	}

	switch ch {
	case inputChange:
		a.loop.Request()
	case commitChange:
		a.loop.Flush()
	}
	return true
}

// handleKey runs with mu held.
func (a *App) handleKey(ev *tcell.EventKey) change {
	switch ev.Key() {
	case tcell.KeyTab, tcell.KeyBacktab:
		ch := a.commit()
		step := Field(1)
		if ev.Key() == tcell.KeyBacktab {
			step = fieldCount - 1
		}
		a.focus = (a.focus + step) % fieldCount
		if ch == noChange {
			ch = inputChange
		}
		return ch

	case tcell.KeyEnter:
		if a.commit() == noChange {
			return noChange
		}
		return commitChange

	case tcell.KeyUp, tcell.KeyRight:
		return a.nudge(+1)
	case tcell.KeyDown, tcell.KeyLeft:
		return a.nudge(-1)

	case tcell.KeyBackspace, tcell.KeyBackspace2:
		text := a.focusedText()
		if text == nil || *text == "" {
			return noChange
		}
		a.setFocusedText((*text)[:len(*text)-1])
		return inputChange

	case tcell.KeyRune:
		r := ev.Rune()
		if r == 's' {
			if a.strictness == optics.Strict {
				a.strictness = optics.Lenient
			} else {
				a.strictness = optics.Strict
			}
			return commitChange
		}
		if !numeric(r) {
			return noChange
		}
		text := a.focusedText()
		if text == nil {
			return noChange
		}
		a.setFocusedText(*text + string(r))
		return inputChange
	}
	return noChange
}

// commit finishes editing the focused field, as leaving it would.
func (a *App) commit() change {
	c := a.controls
	switch a.focus {
	case FieldWavelength:
		c.CommitWavelength()
		return commitChange
	case FieldAngle:
		c.SetAngle(c.AngleText, widget.FromNumber)
		return commitChange
	}
	return noChange
}

// nudge steps the focused control by dir.
func (a *App) nudge(dir float64) change {
	c := a.controls
	switch a.focus {
	case FieldWavelength:
		v := widget.ParseNumber(c.WavelengthText) + dir*wavelengthStepNm
		c.SetWavelengthText(optics.FormatNumber(v))
		c.CommitWavelength()
		return commitChange

	case FieldPreset:
		presets := c.Presets()
		if len(presets) == 0 {
			return noChange
		}
		i := -1
		for j, p := range presets {
			if p.Name == c.Preset {
				i = j
				break
			}
		}
		switch {
		case i < 0 && dir > 0:
			i = 0
		case i < 0:
			i = len(presets) - 1
		default:
			i = (i + int(dir) + len(presets)) % len(presets)
		}
		c.SelectPreset(presets[i].Name)
		return commitChange

	case FieldIndex:
		v := widget.ParseNumber(c.IndexText) + dir*indexStep
		if math.IsNaN(v) {
			return noChange
		}
		c.SetIndexText(optics.FormatNumber(math.Round(v*1000) / 1000))
		return inputChange

	case FieldAngle:
		v := widget.ParseNumber(c.SliderText) + dir*angleStepDeg
		c.SetAngle(optics.FormatNumber(v), widget.FromSlider)
		return inputChange
	}
	return noChange
}

func (a *App) focusedText() *string {
	switch a.focus {
	case FieldWavelength:
		return &a.controls.WavelengthText
	case FieldIndex:
		return &a.controls.IndexText
	case FieldAngle:
		return &a.controls.AngleText
	}
	return nil
}

func (a *App) setFocusedText(s string) {
	c := a.controls
	switch a.focus {
	case FieldWavelength:
		c.SetWavelengthText(s)
	case FieldIndex:
		c.SetIndexText(s)
	case FieldAngle:
		c.AngleText = s
	}
}

func numeric(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E'
}
