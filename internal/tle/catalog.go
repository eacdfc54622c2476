package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ParseCatalog reads a stream of three-line TLE records from r and returns
// the element sets that validate. Each triplet goes through the strict
// ParseSet; records that fail are skipped with a warning log rather than
// aborting the whole catalog.
//
// now is the reference time for two-digit epoch year expansion, passed
// through to ParseSet unchanged.
func ParseCatalog(r io.Reader, now time.Time, logger *slog.Logger) ([]ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var sets []ElementSet
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		// A valid triplet has "1 " / "2 " data-line prefixes. Anything else
		// means we are misaligned; slide forward one line to resync.
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		set, err := ParseSet(name+"\n"+line1+"\n"+line2, now)
		if err != nil {
			logger.Warn("skipping invalid TLE entry", "name", strings.TrimSpace(name), "error", err)
			i += recordLines
			continue
		}

		sets = append(sets, *set)
		i += recordLines
	}

	return sets, nil
}

// NewDataset assembles a Dataset from parsed element sets, computing the
// epoch range over the catalog.
func NewDataset(source string, fetchedAt time.Time, sets []ElementSet) *Dataset {
	ds := &Dataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: sets,
	}
	if len(sets) > 0 {
		ds.EpochRange.Min = sets[0].Epoch
		ds.EpochRange.Max = sets[0].Epoch
		for _, s := range sets[1:] {
			if s.Epoch.Before(ds.EpochRange.Min) {
				ds.EpochRange.Min = s.Epoch
			}
			if s.Epoch.After(ds.EpochRange.Max) {
				ds.EpochRange.Max = s.Epoch
			}
		}
	}
	return ds
}
