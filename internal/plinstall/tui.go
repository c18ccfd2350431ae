package plinstall

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// TUIChooser renders the candidate menu full-screen with tview. Yes/no
// questions stay on the line-oriented Prompter.
type TUIChooser struct {
	*Prompter
}

func NewTUIChooser(p *Prompter) *TUIChooser {
	return &TUIChooser{Prompter: p}
}

// Select shows options as a list with 1-9 shortcuts and a Cancel entry.
// Esc and q cancel. If the terminal cannot be initialised the plain menu
// is used instead.
func (t *TUIChooser) Select(title string, options []string) (int, bool) {
	ui := tview.NewApplication()
	choice, ok := -1, false

	list := tview.NewList().ShowSecondaryText(false)
	for i, opt := range options {
		idx := i
		var shortcut rune
		if i < 9 {
			shortcut = rune('1' + i)
		}
		list.AddItem(opt, "", shortcut, func() {
			choice, ok = idx, true
			ui.Stop()
		})
	}
	list.AddItem("Cancel", "", 'c', func() {
		ui.Stop()
	})
	list.SetBorder(true)
	list.SetTitle(fmt.Sprintf(" %s ", title))

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc || event.Rune() == 'q' {
			ui.Stop()
			return nil
		}
		return event
	})

	if err := ui.SetRoot(list, true).EnableMouse(true).Run(); err != nil {
		debugf("tview menu failed, falling back to plain menu: %v", err)
		return t.Prompter.Select(title, options)
	}
	return choice, ok
}
