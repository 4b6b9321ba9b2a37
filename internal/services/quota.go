package services

import "github.com/tbourn/helloforever-backend/internal/domain"

// FreeMessageLimit is the number of live messages a FREE user may own. The
// third create is rejected.
const FreeMessageLimit = 2

// CheckQuota rejects message creation for FREE users at the limit. Paid
// plans are never limited.
func CheckQuota(u *domain.User) error {
	if u.Plan == domain.PlanFree && u.MessageCount >= FreeMessageLimit {
		return ErrQuotaExceeded
	}
	return nil
}
