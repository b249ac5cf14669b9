package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup by key matches no live row.
var ErrNotFound = errors.New("record not found")

// expectOne turns a zero-row result into [ErrNotFound].
func expectOne(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func intCriteria(criteria map[string]any, key string) (int, bool) {
	switch v := criteria[key].(type) {
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0
	}
	return 0, false
}
