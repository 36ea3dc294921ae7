package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dariusai/darius/internal/search"
)

// SearchView is the web search page: a query input over a results table.
type SearchView struct {
	*tview.Flex
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
}

// NewSearchView creates the search page.
func NewSearchView() *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true).SetTitle(" Results ")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	return &SearchView{
		Flex:    flex,
		input:   input,
		results: results,
	}
}

// SetOnQuery sets the callback invoked when a query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.onQuery = fn
	sv.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(sv.input.GetText())
		}
	})
}

// Update redraws the results table from a completed search.
func (sv *SearchView) Update(set *search.ResultSet) {
	sv.results.Clear()
	if set == nil {
		return
	}
	sv.results.SetTitle(fmt.Sprintf(" Results: %s (%d found) ", set.Query, set.TotalFound))

	headers := []string{" TITLE", " SUMMARY", " WORDS"}
	for col, h := range headers {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}

	for i, r := range set.Results {
		row := i + 1

		title := r.Title
		if title == "" {
			title = r.SearchTitle
		}
		if title == "" {
			title = r.URL
		}

		summary := r.AISummary
		if summary == "" {
			summary = r.SearchSnippet
		}
		words := fmt.Sprintf("%d", r.WordCount)
		if r.Error != "" {
			summary = "error: " + r.Error
			words = "-"
		}

		sv.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(title)).SetMaxWidth(40))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(summary)).SetExpansion(1))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+words).SetMaxWidth(8))
	}
}

// Input returns the query input field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
