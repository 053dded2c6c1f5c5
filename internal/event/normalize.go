package event

import "golang.org/x/text/unicode/norm"

// Normalize returns s in Unicode Normalization Form C. Listeners apply it to
// every captured text field so that composed and decomposed input from
// different senders compare and persist identically.
func Normalize(s string) string {
	return norm.NFC.String(s)
}
