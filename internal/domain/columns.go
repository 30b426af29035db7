package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SystemFields are hidden from the grid and the create form.
var SystemFields = []string{"id", "created_at", "updated_at"}

// Columns derives the column set from the first record, in first-seen order,
// skipping any name in deny. An empty list has no columns.
func Columns(records []Record, deny []string) []string {
	if len(records) == 0 {
		return nil
	}
	return FilterColumns(records[0].Keys(), deny)
}

// FilterColumns removes denied names from keys, keeping order.
func FilterColumns(keys, deny []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !contains(deny, k) {
			out = append(out, k)
		}
	}
	return out
}

var labelCaser = cases.Title(language.Und)

// Label turns a column name into a header label: "created_by" -> "Created By".
func Label(column string) string {
	return labelCaser.String(strings.ReplaceAll(column, "_", " "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
