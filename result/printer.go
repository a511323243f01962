package result

import (
	"fmt"
	"io"
)

// PrintIntake writes the load and dedup summary shown before probing starts.
func PrintIntake(w io.Writer, input string, stats BatchStats) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	writef("Loaded %d records from '%s'.\n", stats.Loaded, input)
	if stats.Excluded > 0 {
		writef("Excluded %d placeholder records.\n", stats.Excluded)
	}
	writef("Removed %d duplicate records. %d unique URLs to check.\n", stats.Duplicates, stats.Checked)
}

// PrintOutcome writes the per-reason breakdown and the final output message.
func PrintOutcome(w io.Writer, output string, stats BatchStats, verdicts []Verdict, written bool) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	counts := Counts(verdicts)
	for _, reason := range AllReasons {
		if n := counts[reason]; n > 0 {
			writef("  %-16s %d\n", FormatReason(reason)+":", n)
		}
	}

	if !written {
		writef("\nNo active links found. Output file will not be created.\n")
		return
	}
	writef("\nFound %d active and unique links.\n", stats.Alive)
	writef("Saved verified links to '%s'.\n", output)
}
