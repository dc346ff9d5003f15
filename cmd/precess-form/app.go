package main

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// App is the precession form application
type App struct {
	tviewApp *tview.Application
	form     *tview.Form
	result   *tview.TextView
	controls *tview.TextView
	logs     *LogManager
	root     *tview.Flex

	direction Direction
}

// NewApp builds the UI. epoch pre-fills the epoch field.
func NewApp(direction Direction, epoch string) *App {
	app := &App{direction: direction}
	app.setupUI(epoch)
	return app
}

// setupUI initializes the user interface
func (a *App) setupUI(epoch string) {
	a.tviewApp = tview.NewApplication()

	a.createForm(epoch)
	a.createResultPanel()
	a.createControlsPanel()
	a.logs = NewLogManager(100)

	a.createLayout()

	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// createForm creates the input form
func (a *App) createForm(epoch string) {
	a.form = tview.NewForm().
		AddDropDown("Direction", []string{ToJ2000.String(), ToB1950.String()}, int(a.direction), func(_ string, index int) {
			a.direction = Direction(index)
		}).
		AddInputField("RA (deg)", "", 40, nil, nil).
		AddInputField("Dec (deg)", "", 40, nil, nil).
		AddInputField("Epoch", epoch, 12, nil, nil).
		AddButton("Precess", a.submit).
		AddButton("Clear", a.clear).
		AddButton("Quit", a.Stop)
	a.form.SetBorder(true).SetTitle(" Precess ")
}

// createResultPanel creates the result view
func (a *App) createResultPanel() {
	a.result = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.result.SetBorder(true).SetTitle(" Result ")
	a.result.SetText("[gray]Enter RA and Dec in degrees. Separate values with commas for several positions.[-]")
}

// createControlsPanel creates the controls/shortcuts panel
func (a *App) createControlsPanel() {
	a.controls = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.controls.SetBorder(true).SetTitle(" Controls ")

	a.controls.SetText(`[yellow]FORM[-]
  [white]TAB[-]       Next field
  [white]ENTER[-]     Activate

[yellow]ACTIONS[-]
  [white]Ctrl+P[-]    Precess
  [white]Ctrl+D[-]    Switch direction

[yellow]CONTROL[-]
  [white]ESC[-]       Quit

[yellow]EPOCH[-]
  [gray]empty = B1950 / J2000[-]
  [gray]1950, B1950, 1975.0 …[-]`)
}

// createLayout creates the main layout
func (a *App) createLayout() {
	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.controls, 0, 5, false).
		AddItem(a.logs.GetView(), 0, 5, false)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.form, 13, 0, true).
		AddItem(a.result, 0, 1, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(left, 0, 7, true).
		AddItem(sidebar, 0, 3, false)

	a.tviewApp.SetRoot(a.root, true)
}

func (a *App) field(label string) string {
	return a.form.GetFormItemByLabel(label).(*tview.InputField).GetText()
}

// submit precesses the form's values and shows the result
func (a *App) submit() {
	result, err := precess(a.direction, a.field("RA (deg)"), a.field("Dec (deg)"), a.field("Epoch"))
	if err != nil {
		a.result.SetText("[red]" + tview.Escape(err.Error()) + "[-]")
		a.logs.Error("%v", err)
		return
	}

	a.result.SetText(formatResult(a.direction, result))
	a.logs.Info("%s: %d position(s)", a.direction, len(result.Positions))
}

// clear resets the coordinate fields
func (a *App) clear() {
	a.form.GetFormItemByLabel("RA (deg)").(*tview.InputField).SetText("")
	a.form.GetFormItemByLabel("Dec (deg)").(*tview.InputField).SetText("")
	a.result.Clear()
}

// toggleDirection switches between jprecess and bprecess
func (a *App) toggleDirection() {
	next := ToB1950
	if a.direction == ToB1950 {
		next = ToJ2000
	}
	a.form.GetFormItemByLabel("Direction").(*tview.DropDown).SetCurrentOption(int(next))
	a.logs.Debug("Direction: %s", next)
}

// handleKeyboard handles keyboard input
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		a.Stop()
		return nil
	case tcell.KeyCtrlP:
		a.submit()
		return nil
	case tcell.KeyCtrlD:
		a.toggleDirection()
		return nil
	}
	return event
}

// Run starts the application
func (a *App) Run() error {
	a.logs.Info("Ready")
	return a.tviewApp.Run()
}

// Stop stops the application
func (a *App) Stop() {
	a.tviewApp.Stop()
}
