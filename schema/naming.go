package schema

import (
	"strings"
	"unicode"
)

// ColumnName converts a Go field name to its snake_case column name.
func ColumnName(fieldName string) string {
	return toSnakeCase(fieldName)
}

// toSnakeCase converts any naming convention to snake_case.
// Handles acronyms and digits: UserID -> user_id, HTTPServer -> http_server.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}

	// Handle special common cases for performance
	switch name {
	case "ID":
		return "id"
	case "UUID":
		return "uuid"
	case "URL":
		return "url"
	case "JSON":
		return "json"
	case "SQL":
		return "sql"
	}

	// If already snake_case (contains underscores and no uppercase), return as-is
	if strings.Contains(name, "_") && !hasUpperCase(name) {
		return name
	}

	var result strings.Builder
	result.Grow(len(name) + 10)

	runes := []rune(name)

	for i, r := range runes {
		lower := unicode.ToLower(r)

		needsUnderscore := false

		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]

			// aB -> a_b, a1B -> a1_b, ABc -> a_bc
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				needsUnderscore = true
			} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				needsUnderscore = true
			}
		}

		if needsUnderscore {
			result.WriteByte('_')
		}

		result.WriteRune(lower)
	}

	return result.String()
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
