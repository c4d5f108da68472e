package domain

import (
	"time"

	"github.com/spec-kit/notice-engine/pkg/util"
)

// LegalTerms captures the contract clauses that drive deadline math.
type LegalTerms struct {
	NoticeDurationDays    int
	CountBusinessDaysOnly bool
	MonthEndProration     bool
	AllowableNoticeTypes  []NoticeType
}

// AllowsNoticeType reports whether the contract permits the given notice type.
func (t LegalTerms) AllowsNoticeType(nt NoticeType) bool {
	for _, allowed := range t.AllowableNoticeTypes {
		if allowed == nt {
			return true
		}
	}
	return false
}

// EffectiveDate computes the legally mandated effective date for a notice
// emitted at the given time: emission plus the notice duration, counting only
// business days when the contract says so, optionally rolled to month end.
func EffectiveDate(emission time.Time, terms LegalTerms) time.Time {
	effective := emission
	if terms.CountBusinessDaysOnly {
		remaining := terms.NoticeDurationDays
		for remaining > 0 {
			effective = effective.AddDate(0, 0, 1)
			if isBusinessDay(effective) {
				remaining--
			}
		}
	} else {
		effective = effective.AddDate(0, 0, terms.NoticeDurationDays)
	}
	if terms.MonthEndProration {
		effective = endOfMonth(effective)
	}
	return effective
}

// ValidateDeadline reports a violation of the minimum notice duration. The
// violation is surfaced, never silently corrected.
func ValidateDeadline(emission, effective time.Time, terms LegalTerms) error {
	daysUntilEffective := int(effective.Sub(emission).Hours() / 24)
	if daysUntilEffective < terms.NoticeDurationDays {
		return util.NewValidationError("notice deadline not respected", map[string]any{
			"minimum_days":  terms.NoticeDurationDays,
			"days_provided": daysUntilEffective,
		})
	}
	return nil
}

func isBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
