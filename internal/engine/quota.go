package engine

// quota counts positions at one level of the hierarchy (configs within a
// visit, slots within a config) and reports positions past the level's cap.
//
// The count advances on every position, within the cap or not, so a
// truncated config still occupies its config number.
type quota struct {
	limit   int64 // Highest position that may be claimed
	current int64 // Position of the last row seen
}

func newQuota(limit int) *quota {
	return &quota{limit: int64(limit)}
}

// next advances to the next position and reports whether it is within the cap.
func (q *quota) next() bool {
	q.current++
	return q.current <= q.limit
}

// reset starts counting again from position 1.
func (q *quota) reset() {
	q.current = 0
}
