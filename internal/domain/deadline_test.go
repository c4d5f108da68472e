package domain

import (
	"testing"
	"time"

	"github.com/spec-kit/notice-engine/pkg/util"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEffectiveDateCalendarDays(t *testing.T) {
	terms := LegalTerms{NoticeDurationDays: 90}
	// 2026-09-01 + 90 days
	got := EffectiveDate(date(2026, time.September, 1), terms)
	if want := date(2026, time.November, 30); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestEffectiveDateBusinessDaysSkipWeekends(t *testing.T) {
	terms := LegalTerms{NoticeDurationDays: 5, CountBusinessDaysOnly: true}
	// Friday 2026-09-04; five business days land on Friday 2026-09-11
	got := EffectiveDate(date(2026, time.September, 4), terms)
	if want := date(2026, time.September, 11); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestEffectiveDateBusinessDaysFromWeekend(t *testing.T) {
	terms := LegalTerms{NoticeDurationDays: 1, CountBusinessDaysOnly: true}
	// Saturday emission; the single business day is Monday
	got := EffectiveDate(date(2026, time.September, 5), terms)
	if want := date(2026, time.September, 7); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestEffectiveDateMonthEndProration(t *testing.T) {
	terms := LegalTerms{NoticeDurationDays: 30, MonthEndProration: true}
	// 2026-09-10 + 30 days = 2026-10-10, prorated to 2026-10-31
	got := EffectiveDate(date(2026, time.September, 10), terms)
	if want := date(2026, time.October, 31); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestValidateDeadlineRejectsShortNotice(t *testing.T) {
	terms := LegalTerms{NoticeDurationDays: 90}
	emission := date(2026, time.September, 1)

	err := ValidateDeadline(emission, emission.AddDate(0, 0, 60), terms)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	domainErr := util.ToDomainError(err)
	if domainErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", domainErr.Code)
	}
	if domainErr.Details["minimum_days"] != 90 {
		t.Fatalf("minimum_days = %v, want 90", domainErr.Details["minimum_days"])
	}
	if domainErr.Details["days_provided"] != 60 {
		t.Fatalf("days_provided = %v, want 60", domainErr.Details["days_provided"])
	}
}

func TestValidateDeadlineAcceptsExactMinimum(t *testing.T) {
	terms := LegalTerms{NoticeDurationDays: 90}
	emission := date(2026, time.September, 1)

	if err := ValidateDeadline(emission, emission.AddDate(0, 0, 90), terms); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAllowsNoticeType(t *testing.T) {
	terms := LegalTerms{AllowableNoticeTypes: []NoticeType{NoticeTypeTermination, NoticeTypeRentIncrease}}

	if !terms.AllowsNoticeType(NoticeTypeTermination) {
		t.Error("termination should be allowed")
	}
	if terms.AllowsNoticeType(NoticeTypeWorks) {
		t.Error("works should not be allowed")
	}
}
