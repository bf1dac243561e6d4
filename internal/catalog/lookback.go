package catalog

import "time"

const (
	DefaultLookbackDays = 7
	MinLookbackDays     = 2
)

// LookbackDays picks how far back a run looks. A positive override wins;
// without a previous run the default applies; after a gap longer than a
// day the gap plus one day is used, otherwise the minimum.
func LookbackDays(override *int, lastRun *time.Time, now time.Time) int {
	if override != nil && *override > 0 {
		return *override
	}
	if lastRun == nil {
		return DefaultLookbackDays
	}
	gap := now.Sub(*lastRun)
	if gap > 24*time.Hour {
		return int(gap.Hours()/24) + 1
	}
	return MinLookbackDays
}

func Cutoff(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
