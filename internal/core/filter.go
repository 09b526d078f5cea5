// Package core orchestrates store builds: parsing annotation sources,
// filtering their records, merging them into the store document, and
// applying update instructions.
package core

import (
	"github.com/annotstore/annotstore/internal/record"
)

// filterRecord reports whether a record passes the source's filters:
// every filter field must be present and hold a permitted value. A
// list-valued field passes when any of its values is permitted.
func filterRecord(rec record.Record, filters map[string][]string) bool {
	for field, permitted := range filters {
		value, ok := rec[field]
		if !ok {
			return false
		}
		if !valuePermitted(value, permitted) {
			return false
		}
	}
	return true
}

func valuePermitted(value any, permitted []string) bool {
	switch v := value.(type) {
	case string:
		return contains(permitted, v)
	case []string:
		for _, item := range v {
			if contains(permitted, item) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if text, ok := item.(string); ok && contains(permitted, text) {
				return true
			}
		}
		return false
	default:
		// Non-string values pass; filters are defined over string fields.
		return true
	}
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// retainFields builds a record holding only the requested top-level
// fields. Takes precedence over dropFields when both are configured.
func retainFields(rec record.Record, keep []string) record.Record {
	result := make(record.Record)
	for _, field := range keep {
		if value, ok := rec[field]; ok {
			result[field] = value
		}
	}
	return result
}

// dropFields removes the requested top-level fields in place.
func dropFields(rec record.Record, drop []string) {
	for _, field := range drop {
		delete(rec, field)
	}
}
