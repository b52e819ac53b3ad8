package captcha

// Summary holds cross-session aggregates derived from the attempt
// ledgers. Hour fields are the most common hour-of-day (UTC) for the
// event, nil when no such event has occurred; mean fields are nil when
// there is nothing to average.
type Summary struct {
	TotalSessions  int `json:"total_sessions"`
	TotalGenerated int `json:"total_generated"`
	TotalSolved    int `json:"total_solved"`
	TotalFailed    int `json:"total_failed"`

	AvgGeneratedPerSession   float64 `json:"avg_generated_per_session"`
	AvgRegeneratedPerSession float64 `json:"avg_regenerated_per_session"`
	AvgSolvedPerSession      float64 `json:"avg_solved_per_session"`
	AvgFailedPerSession      float64 `json:"avg_failed_per_session"`

	MostCommonGenerationHour   *int `json:"most_common_generation_hour"`
	MostCommonRegenerationHour *int `json:"most_common_regeneration_hour"`
	MostCommonSolveHour        *int `json:"most_common_solve_hour"`
	MostCommonFailHour         *int `json:"most_common_fail_hour"`

	AvgTimeToSolve *float64 `json:"avg_time_to_solve"`
	AvgTimeToFail  *float64 `json:"avg_time_to_fail"`
}

// Analytics derives aggregate statistics from the session ledgers on
// demand. It is a pure read-side component: nothing is mutated.
type Analytics struct {
	store *Store
}

// NewAnalytics creates an Analytics reader over the given store.
func NewAnalytics(store *Store) *Analytics {
	return &Analytics{store: store}
}

// hourCounter tracks hour-of-day occurrences in first-encountered order
// so mode ties resolve deterministically.
type hourCounter struct {
	counts map[int]int
	order  []int
}

func newHourCounter() *hourCounter {
	return &hourCounter{counts: make(map[int]int)}
}

func (h *hourCounter) add(hour int) {
	if _, seen := h.counts[hour]; !seen {
		h.order = append(h.order, hour)
	}
	h.counts[hour]++
}

// mode returns the most frequent hour, keeping the first-encountered
// hour on ties, or nil when nothing was recorded.
func (h *hourCounter) mode() *int {
	var best *int
	bestCount := 0
	for _, hour := range h.order {
		if h.counts[hour] > bestCount {
			hr := hour
			best = &hr
			bestCount = h.counts[hour]
		}
	}
	return best
}

// Summarize walks every session ledger once and computes the aggregates
// the dashboard reports. All divisions are guarded: zero sessions yield
// zero averages and nil means, never a panic.
func (a *Analytics) Summarize() (*Summary, error) {
	sum := &Summary{}
	genHours := newHourCounter()
	regenHours := newHourCounter()
	solveHours := newHourCounter()
	failHours := newHourCounter()

	var solveSeconds, failSeconds float64
	var solveCount, failCount int

	err := a.store.ForEachSession(func(sess *Session) error {
		sum.TotalSessions++
		sum.TotalGenerated += sess.Generated
		sum.TotalSolved += sess.Solved
		sum.TotalFailed += sess.Failed

		for i := range sess.Attempts {
			att := &sess.Attempts[i]
			genHours.add(att.PresentedAt.UTC().Hour())
			if !att.Resolved() {
				regenHours.add(att.PresentedAt.UTC().Hour())
				continue
			}
			if att.Success != nil && *att.Success {
				solveHours.add(att.CompletedAt.UTC().Hour())
				solveSeconds += att.TimeTaken
				solveCount++
			} else {
				failHours.add(att.CompletedAt.UTC().Hour())
				failSeconds += att.TimeTaken
				failCount++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sum.TotalSessions > 0 {
		n := float64(sum.TotalSessions)
		sum.AvgGeneratedPerSession = float64(sum.TotalGenerated) / n
		sum.AvgRegeneratedPerSession = float64(sum.TotalGenerated-(sum.TotalSolved+sum.TotalFailed)) / n
		sum.AvgSolvedPerSession = float64(sum.TotalSolved) / n
		sum.AvgFailedPerSession = float64(sum.TotalFailed) / n
	}

	sum.MostCommonGenerationHour = genHours.mode()
	sum.MostCommonRegenerationHour = regenHours.mode()
	sum.MostCommonSolveHour = solveHours.mode()
	sum.MostCommonFailHour = failHours.mode()

	if solveCount > 0 {
		mean := solveSeconds / float64(solveCount)
		sum.AvgTimeToSolve = &mean
	}
	if failCount > 0 {
		mean := failSeconds / float64(failCount)
		sum.AvgTimeToFail = &mean
	}
	return sum, nil
}
