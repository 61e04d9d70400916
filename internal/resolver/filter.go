package resolver

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"keyly/internal/sheets"
)

// Filter narrows res to entries matching query. Action, category, group,
// their descriptions and the shortcut glyphs are compared case-folded by
// substring; the action additionally matches fuzzily. A blank query returns
// res unchanged.
func Filter(res Result, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return res
	}
	// cases.Caser is stateful; one per call.
	folder := cases.Fold()
	needle := folder.String(query)

	contains := func(s string) bool {
		return s != "" && strings.Contains(folder.String(s), needle)
	}

	out := res
	out.Entries = lo.Filter(res.Entries, func(e sheets.Entry, _ int) bool {
		group, _ := e.Group()
		switch {
		case contains(e.Action()),
			contains(e.Category()),
			contains(group),
			contains(res.CategoryDescriptions[e.Category()]),
			contains(res.GroupDescriptions[group]),
			contains(e.Shortcut()):
			return true
		}
		return fuzzy.MatchFold(query, e.Action())
	})
	return out
}
