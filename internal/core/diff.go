package core

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/keepvault/internal/vault"
)

const maskedValue = "********"

type recordField struct {
	name   string
	value  string
	secret bool
}

func recordFields(r vault.Record) []recordField {
	return []recordField{
		{"name", r.Name, false},
		{"username", r.Username, false},
		{"password", r.Password, true},
		{"url", r.URL, false},
		{"cardholder", r.Cardholder, false},
		{"number", r.Number, true},
		{"expiry", r.Expiry, false},
		{"cvv", r.CVV, true},
		{"pin", r.PIN, true},
		{"notes", r.Notes, false},
	}
}

// FormatRecord renders the non-empty fields of r one per line. Secret fields
// are masked unless reveal is set.
func FormatRecord(r vault.Record, reveal bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", r.ID)
	fmt.Fprintf(&b, "kind: %s\n", r.Kind)
	for _, f := range recordFields(r) {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.name, renderValue(f, reveal))
	}
	return b.String()
}

// RecordDiff returns a line diff between two versions of a record, prefixed
// "-" and "+" for removed and added lines. A changed secret shows up as a
// masked line marked "(changed)" unless reveal is set. An empty string means
// nothing visible changed.
func RecordDiff(before, after vault.Record, reveal bool) string {
	oldText, newText := diffText(before, after, reveal)
	if oldText == newText {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s (before)\n", before.ID)
	fmt.Fprintf(&result, "+++ %s (after)\n", after.ID)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			result.WriteString(prefix)
			result.WriteString(line)
		}
	}
	return result.String()
}

func diffText(before, after vault.Record, reveal bool) (string, string) {
	oldFields, newFields := recordFields(before), recordFields(after)

	var oldText, newText strings.Builder
	for i := range oldFields {
		of, nf := oldFields[i], newFields[i]
		if of.value != "" {
			fmt.Fprintf(&oldText, "%s: %s\n", of.name, renderValue(of, reveal))
		}
		if nf.value != "" {
			value := renderValue(nf, reveal)
			if nf.secret && !reveal && of.value != "" && of.value != nf.value {
				value += " (changed)"
			}
			fmt.Fprintf(&newText, "%s: %s\n", nf.name, value)
		}
	}
	return oldText.String(), newText.String()
}

func renderValue(f recordField, reveal bool) string {
	if f.secret && !reveal {
		return maskedValue
	}
	return f.value
}
