package utils

import "strings"

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// NonEmpty returns a pointer to the trimmed string, or nil when it is blank.
func NonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// HasValue reports whether p points at a non-blank string.
func HasValue(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}
