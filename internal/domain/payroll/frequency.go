package payroll

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// EligibleMonths returns the processing months of a frequency.
// One-time items have no fixed month; they run in the first month of their window.
func EligibleMonths(f Frequency) []time.Month {
	switch f {
	case FrequencyMonthly:
		return []time.Month{
			time.January, time.February, time.March, time.April, time.May, time.June,
			time.July, time.August, time.September, time.October, time.November, time.December,
		}
	case FrequencyQuarterly:
		return []time.Month{time.March, time.June, time.September, time.December}
	case FrequencyYearly:
		return []time.Month{time.December}
	}
	return nil
}

// ValidateSchedule checks that a recurring allowance has at least one processing
// occurrence between start and end. The message is shown to the user as-is.
func ValidateSchedule(frequency Frequency, start, end *time.Time) ScheduleValidation {
	if start == nil {
		return ScheduleValidation{IsValid: true}
	}

	switch frequency {
	case FrequencyMonthly, FrequencyOneTime:
		return ScheduleValidation{IsValid: true}

	case FrequencyYearly:
		if end == nil {
			return ScheduleValidation{IsValid: true}
		}
		if end.Before(*start) {
			return reversedWindow(frequency, start, end)
		}
		if end.Year() >= start.Year() && end.Month() < time.December {
			return ScheduleValidation{
				IsValid: false,
				Message: fmt.Sprintf(
					"Yearly allowances are only processed in December. End date %s falls before December %d, so this allowance would never be paid. Extend the end date to December %d or later.",
					end.Format(dateLayout), end.Year(), end.Year()),
			}
		}
		return ScheduleValidation{IsValid: true}

	case FrequencyQuarterly:
		if end == nil {
			return ScheduleValidation{IsValid: true}
		}
		if end.Before(*start) {
			return reversedWindow(frequency, start, end)
		}
		span := (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
		if span < 3 {
			return ScheduleValidation{
				IsValid: false,
				Message: fmt.Sprintf(
					"Quarterly allowances are processed in March, June, September and December. The window from %s to %s covers %d month(s), less than one quarter, so it closes before the next quarter boundary.",
					start.Format(dateLayout), end.Format(dateLayout), span),
			}
		}
		return ScheduleValidation{IsValid: true}
	}

	return ScheduleValidation{IsValid: false, Message: fmt.Sprintf("Unknown frequency %q", frequency)}
}

func reversedWindow(frequency Frequency, start, end *time.Time) ScheduleValidation {
	return ScheduleValidation{
		IsValid: false,
		Message: fmt.Sprintf(
			"End date %s is before start date %s, so this %s allowance would never be paid. Choose an end date on or after %s.",
			end.Format(dateLayout), start.Format(dateLayout), frequency, start.Format(dateLayout)),
	}
}

// Validate runs ValidateSchedule on the schedule.
func (s AllowanceSchedule) Validate() ScheduleValidation {
	return ValidateSchedule(s.Frequency, s.StartDate, s.EndDate)
}

// DueIn reports whether an allowance with this schedule is paid in the given
// processing month. A schedule without a start date is never due.
func (s AllowanceSchedule) DueIn(month time.Month, year int) bool {
	if s.StartDate == nil {
		return false
	}
	periodIndex := year*12 + int(month) - 1
	startIndex := s.StartDate.Year()*12 + int(s.StartDate.Month()) - 1
	if periodIndex < startIndex {
		return false
	}
	if s.EndDate != nil {
		endIndex := s.EndDate.Year()*12 + int(s.EndDate.Month()) - 1
		if periodIndex > endIndex {
			return false
		}
	}

	if s.Frequency == FrequencyOneTime {
		return periodIndex == startIndex
	}
	for _, m := range EligibleMonths(s.Frequency) {
		if m == month {
			return true
		}
	}
	return false
}
