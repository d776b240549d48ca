package engine

// QuotaEnforcer counts compiles within one Link call and stops the
// fixpoint loop when they exceed the limit.
//
// Candidates are queued at most once per Link call, so the loop always
// ends; the quota bounds how long it may take with a large repository.
type QuotaEnforcer struct {
	limit   int
	current int
}

// NewQuotaEnforcer creates an enforcer allowing limit compiles.
func NewQuotaEnforcer(limit int) *QuotaEnforcer {
	return &QuotaEnforcer{limit: limit}
}

// Check counts one compile and fails once the limit is passed.
func (q *QuotaEnforcer) Check(token string) error {
	q.current++
	if q.current > q.limit {
		return &LimitError{Kind: LimitIterations, Limit: q.limit, Token: token}
	}
	return nil
}

// Current returns the number of compiles counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}
