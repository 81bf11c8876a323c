package query

import "time"

// FilterPredicate collects optional, placeholder-bound conditions. Each
// condition keeps its own argument slice so Apply can merge them in order.
type FilterPredicate struct {
	conditions []string
	values     [][]interface{}
}

func NewFilterPredicate() *FilterPredicate {
	return &FilterPredicate{}
}

func (fp *FilterPredicate) add(condition string, args ...interface{}) *FilterPredicate {
	fp.conditions = append(fp.conditions, condition)
	fp.values = append(fp.values, args)
	return fp
}

func (fp *FilterPredicate) Equal(column string, value interface{}) *FilterPredicate {
	return fp.add(column+" = ?", value)
}

func (fp *FilterPredicate) NotEqual(column string, value interface{}) *FilterPredicate {
	return fp.add(column+" <> ?", value)
}

func (fp *FilterPredicate) NotNull(column string) *FilterPredicate {
	return fp.add(column + " IS NOT NULL")
}

func (fp *FilterPredicate) Before(column string, t time.Time) *FilterPredicate {
	return fp.add(column+" < ?", t)
}

func (fp *FilterPredicate) After(column string, t time.Time) *FilterPredicate {
	return fp.add(column+" > ?", t)
}

func (fp *FilterPredicate) Empty() bool {
	return len(fp.conditions) == 0
}

// AttemptFilter narrows attempt-history queries. Optional fields left at
// their zero value are not applied.
type AttemptFilter struct {
	Status        string
	StartedAfter  time.Time
	StartedBefore time.Time
}

// Predicate renders the filter as bound conditions.
func (f AttemptFilter) Predicate() *FilterPredicate {
	fp := NewFilterPredicate()
	if f.Status != "" {
		fp.Equal("status", f.Status)
		if f.Status == "FINISHED" {
			fp.NotNull("finished_at")
		}
	}
	if !f.StartedAfter.IsZero() {
		fp.After("started_at", f.StartedAfter)
	}
	if !f.StartedBefore.IsZero() {
		fp.Before("started_at", f.StartedBefore)
	}
	return fp
}

// LedgerFilter narrows balance-history queries.
type LedgerFilter struct {
	Type  string
	Since time.Time
	Until time.Time
}

func (f LedgerFilter) Predicate() *FilterPredicate {
	fp := NewFilterPredicate()
	if f.Type != "" {
		fp.Equal("type", f.Type)
	}
	if !f.Since.IsZero() {
		fp.After("created_at", f.Since)
	}
	if !f.Until.IsZero() {
		fp.Before("created_at", f.Until)
	}
	return fp
}
