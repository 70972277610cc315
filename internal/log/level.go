//go:generate go run golang.org/x/tools/cmd/stringer -type=Level -linecomment=true

package log

import (
	"strings"
)

// Level parametrizes supported log verbosity levels. The ordering is unusual by convention: it
// mirrors the severity ranking used throughout this system's logging core, where Warning ranks
// ahead of Error (every level that admits Error also admits Warning), and both are considered less
// verbose than the informational and debug tiers.
type Level int

const (
	// Warning messages describe non-erroring divergences from the ideal code path.
	Warning Level = iota // WARNING
	// Error messages indicate behavior that is not intended and should be corrected.
	Error // ERROR
	// Info messages convey general events.
	Info // INFO
	// Debug messages trace application-level behaviors.
	Debug // DEBUG
)

// ParseLevel looks up a Level constant by its stringified (case-insensitive) representation.
func ParseLevel(level string) (Level, bool) {
	knownLevels := []Level{Warning, Error, Info, Debug}

	for _, knownLevel := range knownLevels {
		if strings.ToLower(level) == strings.ToLower(knownLevel.String()) {
			return knownLevel, true
		}
	}

	return Error, false
}

// Enables indicates whether the current log level admits a record logged at another level: a
// configured level admits any record whose level index is less than or equal to its own.
//
// For example,
//	Debug enables Warning, Error, Info, and Debug
//	Error enables Warning and Error, but not Info or Debug
//	Warning enables only Warning
func (l Level) Enables(other Level) bool {
	return other <= l
}
