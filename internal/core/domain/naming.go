package domain

import (
	"path/filepath"
	"strings"
)

// Stem returns path without the final extension of its base name. Dots in directory names are kept.
func Stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// OutputPath derives the output file for an input path, e.g. "a.b.pgm" -> "a.b_resized.pgm".
func OutputPath(path string) string {
	return Stem(path) + OutputSuffix + OutputExtension
}
