// Package sqlite implements the stores on a single SQLite file for
// single-node deployments and tests.
package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Timestamps are stored as fixed-width UTC text so that string comparison in
// SQL matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

var parseLayouts = []string{
	timeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

func ts(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// nullTime scans a TIMESTAMP column into a *time.Time, whether the driver
// hands it over as time.Time or as text.
type nullTime struct {
	dest **time.Time
}

func (n nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n.dest = nil
		return nil
	case time.Time:
		t := v.UTC()
		*n.dest = &t
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	case int64:
		t := time.Unix(v, 0).UTC()
		*n.dest = &t
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (n nullTime) parse(s string) error {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			*n.dest = &t
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

// timeValue scans a NOT NULL TIMESTAMP column.
type timeValue struct {
	dest *time.Time
}

func (v timeValue) Scan(src any) error {
	var p *time.Time
	if err := (nullTime{dest: &p}).Scan(src); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("unexpected NULL timestamp")
	}
	*v.dest = *p
	return nil
}

func nullableTS(t *time.Time) driver.Value {
	if t == nil {
		return nil
	}
	return ts(*t)
}

// inClause returns "?, ?, ?" for n placeholders and the ids as arguments.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
