// Package delivery holds the pure delivery policy: it decodes a message's
// delivery rule into a Schedule, decides whether a message is due at a given
// instant, and computes the state a delivered message must end up in.
//
// Nothing here performs I/O. The sweep orchestrator in the services package
// feeds candidates in and commits the outcome.
package delivery

import (
	"errors"
	"fmt"
	"time"

	"github.com/tbourn/helloforever-backend/internal/domain"
)

// ErrInvalidSchedule is returned when a message's delivery fields do not form
// a valid rule (e.g. SPECIFIC_DATE without a date).
var ErrInvalidSchedule = errors.New("invalid delivery schedule")

// Schedule is the decoded delivery rule of a message. The concrete types are
// SpecificDate, Milestone, UponPassing and Surprise.
type Schedule interface {
	// Kind returns the delivery type the schedule was decoded from.
	Kind() domain.DeliveryType
	isSchedule()
}

// SpecificDate releases a message once At has passed.
type SpecificDate struct{ At time.Time }

// Milestone releases a message on a life event. Only BIRTHDAY has a
// computable date.
type Milestone struct{ Event domain.Milestone }

// UponPassing releases a message through the trustee workflow.
type UponPassing struct{}

// Surprise releases a message through a separate trigger.
type Surprise struct{}

func (SpecificDate) Kind() domain.DeliveryType { return domain.DeliverySpecificDate }
func (Milestone) Kind() domain.DeliveryType    { return domain.DeliveryMilestone }
func (UponPassing) Kind() domain.DeliveryType  { return domain.DeliveryUponPassing }
func (Surprise) Kind() domain.DeliveryType     { return domain.DeliverySurprise }

func (SpecificDate) isSchedule() {}
func (Milestone) isSchedule()    {}
func (UponPassing) isSchedule()  {}
func (Surprise) isSchedule()     {}

// ScheduleOf decodes the delivery rule stored on m. Combinations that cannot
// be delivered (missing date or milestone, unknown values) yield an error
// wrapping ErrInvalidSchedule.
func ScheduleOf(m domain.Message) (Schedule, error) {
	switch m.DeliveryType {
	case domain.DeliverySpecificDate:
		if m.ScheduledDate == nil || m.ScheduledDate.IsZero() {
			return nil, fmt.Errorf("%w: scheduled date required", ErrInvalidSchedule)
		}
		return SpecificDate{At: *m.ScheduledDate}, nil
	case domain.DeliveryMilestone:
		if m.Milestone == nil || !m.Milestone.Valid() {
			return nil, fmt.Errorf("%w: milestone required", ErrInvalidSchedule)
		}
		return Milestone{Event: *m.Milestone}, nil
	case domain.DeliveryUponPassing:
		return UponPassing{}, nil
	case domain.DeliverySurprise:
		return Surprise{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown delivery type %q", ErrInvalidSchedule, m.DeliveryType)
	}
}

// IsDue reports whether m must be delivered at now. birthday is the
// recipient's birthday (nil when unknown) and is only consulted for
// MILESTONE/BIRTHDAY messages.
//
// Only SCHEDULED messages are candidates. A birthday message matches on
// (month, day) in UTC every year for as long as it stays SCHEDULED.
func IsDue(m domain.Message, birthday *time.Time, now time.Time) bool {
	if m.Status != domain.StatusScheduled {
		return false
	}
	s, err := ScheduleOf(m)
	if err != nil {
		return false
	}
	switch s := s.(type) {
	case SpecificDate:
		return !s.At.After(now)
	case Milestone:
		if s.Event != domain.MilestoneBirthday {
			// No date source exists for the other milestones.
			return false
		}
		return SameMonthDay(birthday, now)
	default:
		return false
	}
}

// SameMonthDay reports whether birthday falls on now's month and day (UTC).
// The year is ignored. A nil birthday never matches.
func SameMonthDay(birthday *time.Time, now time.Time) bool {
	if birthday == nil || birthday.IsZero() {
		return false
	}
	b := birthday.UTC()
	n := now.UTC()
	return b.Month() == n.Month() && b.Day() == n.Day()
}

// Outcome is the state a message is committed to once delivered.
type Outcome struct {
	Status      domain.Status
	DeliveredAt time.Time
}

// OutcomeAt returns the post-delivery state for a sweep running at now. All
// messages delivered in one run share the same DeliveredAt.
func OutcomeAt(now time.Time) Outcome {
	return Outcome{Status: domain.StatusDelivered, DeliveredAt: now}
}
