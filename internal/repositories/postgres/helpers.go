package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// sortableColumns guards ORDER BY input against injection; anything not
// whitelisted falls back to the caller's default column.
var sortableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"version":    true,
	"status":     true,
	"order":      true,
}

func applySorting(query *gorm.DB, sortBy, sortOrder, defaultColumn string) *gorm.DB {
	column := defaultColumn
	if sortableColumns[sortBy] {
		column = sortBy
	}
	direction := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		direction = "DESC"
	}
	return query.Order(fmt.Sprintf(`"%s" %s`, column, direction))
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
