// Package normalize canonicalizes identifiers and header text coming out of
// spreadsheet exports so that matching is robust to formatting noise.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ShipmentID canonicalizes a shipment (waybill) identifier: trim, drop
// internal whitespace and dashes. "0000-1234" -> "00001234".
func ShipmentID(value string) string {
	return stripSeparators(strings.TrimSpace(value))
}

// ContainerID canonicalizes a container identifier: upper-case, drop
// whitespace and dashes. "csnu-123456-7" -> "CSNU1234567".
func ContainerID(value string) string {
	return stripSeparators(strings.ToUpper(strings.TrimSpace(value)))
}

// Header folds a column header for synonym matching: accents stripped,
// lower-cased, whitespace collapsed.
func Header(value string) string {
	s := StripAccents(strings.TrimSpace(value))
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// Text trims and collapses internal whitespace.
func Text(value string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(value)), " ")
}

// UpperClean is Text followed by upper-casing.
func UpperClean(value string) string {
	return strings.ToUpper(Text(value))
}

// StripAccents removes combining marks: "Guía" -> "Guia".
func StripAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}

func stripSeparators(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
