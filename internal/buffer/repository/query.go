// Package repository provides buffer entry persistence for SQLite, PostgreSQL and MySQL.
package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/allisson/scanrelay/internal/buffer/domain"
)

const entryColumns = `id, payload, checksum, status, retry_count, last_error, created_at, synced_at, updated_at, idempotency_key`

// listQuery builds the SELECT used by List. placeholder renders the n-th bind
// parameter and timeArg converts a time to the driver's column representation.
func listQuery(
	filter domain.ExportFilter,
	placeholder func(n int) string,
	timeArg func(t time.Time) any,
) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, placeholder(len(args))))
	}

	if filter.Status != "" {
		add("status = %s", filter.Status)
	}
	if filter.From != nil {
		add("created_at >= %s", timeArg(*filter.From))
	}
	if filter.To != nil {
		add("created_at <= %s", timeArg(*filter.To))
	}

	var b strings.Builder
	b.WriteString("SELECT " + entryColumns + " FROM buffer_entries")
	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY created_at ASC, id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(" LIMIT " + placeholder(len(args)))
	}

	return b.String(), args
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }
