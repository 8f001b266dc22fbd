package meta

import "fmt"

// InconsistencyError reports a category record whose parallel collection
// lists disagree on their length. Such a record cannot be trusted, so the
// whole category is rejected.
type InconsistencyError struct {
	Category string
	Field    string
	Want     int
	Got      int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("meta: inconsistent record for category %q: %d %s for %d collections", e.Category, e.Got, e.Field, e.Want)
}
