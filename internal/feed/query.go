package feed

import (
	"fmt"
	"time"

	"example.com/timelinefeed/internal/models"
)

// Query constrains a timeline or feed. The zero value applies no constraints.
type Query struct {
	limit  int
	after  time.Time
	before time.Time
}

type QueryOption func(*Query) error

// Limit keeps only the n most recent messages. n must be positive.
func Limit(n int) QueryOption {
	return func(q *Query) error {
		if n <= 0 {
			return fmt.Errorf("%w: limit must be greater than zero, got %d", models.ErrInvalidQuery, n)
		}
		q.limit = n
		return nil
	}
}

// After keeps messages strictly newer than t.
func After(t time.Time) QueryOption {
	return func(q *Query) error {
		q.after = t
		return nil
	}
}

// Before keeps messages strictly older than t.
func Before(t time.Time) QueryOption {
	return func(q *Query) error {
		q.before = t
		return nil
	}
}

func NewQuery(opts ...QueryOption) (Query, error) {
	var q Query
	for _, opt := range opts {
		if err := opt(&q); err != nil {
			return Query{}, err
		}
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// WithLimit is shorthand for NewQuery(Limit(n)).
func WithLimit(n int) (Query, error) {
	return NewQuery(Limit(n))
}

func (q Query) Validate() error {
	if q.limit < 0 {
		return fmt.Errorf("%w: limit must be greater than zero, got %d", models.ErrInvalidQuery, q.limit)
	}
	if !q.after.IsZero() && !q.before.IsZero() && !q.after.Before(q.before) {
		return fmt.Errorf("%w: after must be earlier than before", models.ErrInvalidQuery)
	}
	return nil
}

func (q Query) Limit() (int, bool)        { return q.limit, q.limit > 0 }
func (q Query) After() (time.Time, bool)  { return q.after, !q.after.IsZero() }
func (q Query) Before() (time.Time, bool) { return q.before, !q.before.IsZero() }

// Apply filters msgs to the time window, sorts newest first and truncates to
// the limit, in that order. msgs is not modified.
func (q Query) Apply(msgs []models.Message) ([]models.Message, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if !q.after.IsZero() && !m.Timestamp.After(q.after) {
			continue
		}
		if !q.before.IsZero() && !m.Timestamp.Before(q.before) {
			continue
		}
		out = append(out, m)
	}

	sortNewestFirst(out)

	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out, nil
}
