package database

import (
	"database/sql"
	"time"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// nullDate scans a nullable DATE or TEXT date column.
type nullDate struct {
	date  models.Date
	valid bool
}

func (n *nullDate) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.date.Scan(src)
}

func (n nullDate) ptr() *models.Date {
	if !n.valid {
		return nil
	}
	d := n.date
	return &d
}

func dateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullUUIDArg(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func timeArg(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func intArg(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// now returns the current instant in UTC at the precision both backends store.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
