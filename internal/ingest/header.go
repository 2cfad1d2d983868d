package ingest

import (
	"fmt"
	"strings"

	"freight-audit/internal/normalize"
)

// Exports from operations tooling bury the header row under title banners
// and blank padding, so parsers scan for it instead of assuming row one.
const maxHeaderScan = 30

// columnSpec names a logical column and the header synonyms that identify
// it. Synonyms are matched against accent-folded, lower-cased headers.
type columnSpec struct {
	name     string
	synonyms []string
	required bool
}

// findHeaderRow scans the first rows for the one that looks most like a
// header: the row matching every probe token wins, otherwise the first row
// matching at least two. Falls back to the first row.
func findHeaderRow(rows [][]string, probes []string) (int, []string) {
	best := -1
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		headers := normalizeHeaders(rows[i])
		hits := 0
		for _, probe := range probes {
			if headerIndex(headers, probe) >= 0 {
				hits++
			}
		}
		if hits == len(probes) && len(probes) > 0 {
			return i, headers
		}
		if hits >= 2 && best < 0 {
			best = i
		}
	}
	if best >= 0 {
		return best, normalizeHeaders(rows[best])
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return 0, normalizeHeaders(rows[0])
}

func normalizeHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = normalize.Header(h)
	}
	return headers
}

func headerIndex(headers []string, synonym string) int {
	for i, h := range headers {
		if h == synonym {
			return i
		}
	}
	for i, h := range headers {
		if h != "" && strings.Contains(h, synonym) {
			return i
		}
	}
	return -1
}

// mapColumns resolves each spec to a column index, -1 when absent. Exact
// header matches are claimed first so that, say, a "cargo id" column is not
// swallowed by the broader "cargo" synonym of another spec.
func mapColumns(headers []string, specs []columnSpec) map[string]int {
	cols := make(map[string]int, len(specs))
	used := make(map[int]bool)
	for _, spec := range specs {
		cols[spec.name] = -1
		for _, syn := range spec.synonyms {
			for i, h := range headers {
				if h == syn && !used[i] {
					cols[spec.name] = i
					used[i] = true
					break
				}
			}
			if cols[spec.name] >= 0 {
				break
			}
		}
	}
	for _, spec := range specs {
		if cols[spec.name] >= 0 {
			continue
		}
		for _, syn := range spec.synonyms {
			for i, h := range headers {
				if h != "" && strings.Contains(h, syn) && !used[i] {
					cols[spec.name] = i
					used[i] = true
					break
				}
			}
			if cols[spec.name] >= 0 {
				break
			}
		}
	}
	return cols
}

// missingRequired lists required specs that resolved to no column.
func missingRequired(cols map[string]int, specs []columnSpec) []string {
	var missing []string
	for _, spec := range specs {
		if spec.required && cols[spec.name] < 0 {
			missing = append(missing, spec.name)
		}
	}
	return missing
}

func requireColumns(sheet string, cols map[string]int, specs []columnSpec) error {
	if missing := missingRequired(cols, specs); len(missing) > 0 {
		return fmt.Errorf("ingest: sheet %q is missing required columns: %s", sheet, strings.Join(missing, ", "))
	}
	return nil
}
