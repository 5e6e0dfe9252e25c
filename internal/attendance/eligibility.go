// internal/attendance/eligibility.go
package attendance

import (
	"time"

	"clubroll/internal/membership"
)

// CheckEligibility decides whether the member may attend a session on the
// given date. Checks run in order and the first failure wins:
//
//  1. A licenced member is rejected only when the licence lapsed before the
//     attendance date. Licenced members are never subject to the trial
//     allowance, whatever their counter reads.
//  2. An unlicenced member must have trial sessions left. When the call is
//     replacing an existing registration for the same slot, the counter is
//     notionally restored by one first, so re-submitting the same session
//     never exhausts the allowance by itself.
//
// The check never mutates the member; registration applies its counter
// changes only after eligibility passes.
func CheckEligibility(m *membership.Member, date time.Time, replacing bool) error {
	if m.HasLicence() {
		if m.LicenceExpired(date) {
			return ErrExpiredLicence
		}
		return nil
	}

	remaining := m.RemainingTrialSessions()
	if replacing {
		remaining++
	}
	if remaining <= 0 {
		return ErrNoRemainingTrialSessions
	}
	return nil
}
