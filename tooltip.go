package glowmap

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Tooltip formats the hover text of cell k. ok reports whether the
// snapshot had data for k; cells without data show "No data".
func Tooltip(p *message.Printer, k CellKey, c Cell, ok bool) string {
	var b strings.Builder
	// Periods are years; keep them out of the grouping printer.
	fmt.Fprintf(&b, "%d · Tier %d", k.Period, k.Tier)
	if !ok {
		b.WriteString("\nNo data")
		return b.String()
	}
	p.Fprintf(&b, "\nTracked: %d records · %d securities", c.TrackedRecords, c.TrackedEntities)
	p.Fprintf(&b, "\nUntracked: %d records · %d securities", c.UntrackedRecords, c.UntrackedEntities)
	p.Fprintf(&b, "\nCoverage: %.1f%%", c.Coverage()*100)
	return b.String()
}

// defaultPrinter formats numbers with English digit grouping.
func defaultPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}
