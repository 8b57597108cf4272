package model

import "time"

// Booking statuses. Only StatusConfirmed blocks a resource's time; the other
// statuses release it for scheduling purposes.
const (
	StatusConfirmed   = "confirmed"
	StatusUnconfirmed = "unconfirmed"
	StatusRescheduled = "rescheduled"
	StatusCancelled   = "cancelled"
	StatusNoShow      = "no_show"
)

// BlockingStatuses are the statuses whose intervals occupy the resource for
// conflict purposes.
var BlockingStatuses = []string{StatusConfirmed}

func IsBlockingStatus(status string) bool {
	for _, s := range BlockingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Booking struct {
	ID            string
	TenantID      string
	ServiceID     string
	ResourceID    string // empty until a resource is assigned
	CustomerPhone string
	CustomerName  string
	StartsAt      time.Time
	EndsAt        time.Time
	Status        string
	Notes         string
	CancelReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CancelledAt   *time.Time
}

type Service struct {
	ID             string
	TenantID       string
	Name           string
	DurationMin    int
	BufferAfterMin int
	CreatedAt      time.Time
}

type Resource struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// BusinessHours is the recurring weekly rule. ResourceID nil means the
// tenant-wide default; a resource-specific row overrides it for that weekday.
type BusinessHours struct {
	TenantID   string
	ResourceID *string
	Weekday    int    // 0=Sunday .. 6=Saturday, local time
	OpenTime   string // "HH:MM" local wall clock
	CloseTime  string // "HH:MM" local wall clock
	IsClosed   bool
}

// Exception is a one-off override over an absolute [StartsAt, EndsAt) range.
// It always takes precedence over BusinessHours for any overlapping instant.
type Exception struct {
	ID         string
	TenantID   string
	ResourceID *string
	StartsAt   time.Time
	EndsAt     time.Time
	IsClosed   bool
	Note       string
}

// TenantSettings carries the per-tenant scheduling knobs. The zero value is
// never used directly; storage fills in defaults when no row exists.
type TenantSettings struct {
	TenantID            string
	CancelFreeHours     int
	UTCOffsetMinutes    int // fixed, non-DST offset; RD is -240 (UTC-4)
	MaxSlotsPerResource int
	ReminderOffsetsMin  []int
	BrandName           string
}

const (
	DefaultCancelFreeHours     = 3
	DefaultUTCOffsetMinutes    = -240
	DefaultMaxSlotsPerResource = 8
)

func DefaultSettings(tenantID string) TenantSettings {
	return TenantSettings{
		TenantID:            tenantID,
		CancelFreeHours:     DefaultCancelFreeHours,
		UTCOffsetMinutes:    DefaultUTCOffsetMinutes,
		MaxSlotsPerResource: DefaultMaxSlotsPerResource,
		ReminderOffsetsMin:  []int{1440, 60},
	}
}
