// Package emergency implements a dead-man's switch: designated contacts can
// gain access to a vault after the owner has been inactive beyond a
// configured period, with a grace countdown during which the owner can still
// cancel by checking in.
package emergency

import "github.com/hackingbutlegal/lockbox/lib/core"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// MaxContacts bounds the emergency contact list.
	MaxContacts = 5

	// MinInactivity is the shortest inactivity period (30 days).
	MinInactivity uint64 = 30 * 24 * 60 * 60

	// MaxInactivity is the longest inactivity period (365 days).
	MaxInactivity uint64 = 365 * 24 * 60 * 60

	// MinGrace is the shortest grace countdown (1 day).
	MinGrace uint64 = 24 * 60 * 60

	// MaxContactInfo bounds the encrypted contact blob.
	MaxContactInfo = 256
)

// AccessLevel is what a contact receives once the switch releases.
// Persisted, stable.
type AccessLevel uint8

const (
	AccessReadOnly AccessLevel = 1
	AccessFull     AccessLevel = 2
)

func (l AccessLevel) String() string {
	switch l {
	case AccessReadOnly:
		return "read-only"
	case AccessFull:
		return "full"
	}
	return "unknown"
}

// State is the switch lifecycle. Persisted, stable.
type State uint8

const (
	StateArmed     State = 0 // owner active, nothing pending
	StateTriggered State = 1 // a contact requested access, grace running
	StateReleased  State = 2 // grace elapsed, access granted
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateTriggered:
		return "triggered"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// ContactStatus is a contact's lifecycle state. Persisted, stable.
type ContactStatus uint8

const (
	ContactPending ContactStatus = 0 // invited, has not accepted the role yet
	ContactActive  ContactStatus = 1
)

func (s ContactStatus) String() string {
	switch s {
	case ContactPending:
		return "pending"
	case ContactActive:
		return "active"
	}
	return "unknown"
}

// Contact is one emergency contact. ContactInfo is an opaque encrypted blob
// (how to reach them); the store never reads it.
type Contact struct {
	ID          core.Identity
	ContactInfo []byte
	Level       AccessLevel
	Status      ContactStatus
	AddedAt     core.Timestamp
}

// Switch is the per-owner dead-man's switch.
type Switch struct {
	Owner            core.Identity
	Contacts         []Contact
	InactivityPeriod uint64 // seconds, within [MinInactivity, MaxInactivity]
	GracePeriod      uint64 // seconds, >= MinGrace
	LastCheckIn      core.Timestamp
	State            State
	TriggeredAt      core.Timestamp
	TriggeredBy      core.Identity
	CreatedAt        core.Timestamp
	LastModified     core.Timestamp
}

// New validates periods and creates an armed switch. Creation counts as a
// check-in.
func New(owner core.Identity, inactivity, grace uint64, now core.Timestamp) (*Switch, error) {
	if inactivity < MinInactivity || inactivity > MaxInactivity {
		return nil, core.NewError(core.KindValidationError,
			"inactivity period %ds outside [%ds, %ds]", inactivity, MinInactivity, MaxInactivity)
	}
	if grace < MinGrace {
		return nil, core.NewError(core.KindValidationError,
			"grace period %ds below minimum %ds", grace, MinGrace)
	}
	return &Switch{
		Owner:            owner,
		InactivityPeriod: inactivity,
		GracePeriod:      grace,
		LastCheckIn:      now,
		State:            StateArmed,
		CreatedAt:        now,
		LastModified:     now,
	}, nil
}

// --------------------------------------------------------------------------
// Contact Management
// --------------------------------------------------------------------------

func (s *Switch) findContact(id core.Identity) (int, error) {
	for i := range s.Contacts {
		if s.Contacts[i].ID == id {
			return i, nil
		}
	}
	return 0, core.NewError(core.KindNotFound, "emergency contact %s not found", id)
}

// AddContact registers a contact. Mutating the contact list counts as a
// check-in since it proves the owner is alive.
func (s *Switch) AddContact(id core.Identity, info []byte, level AccessLevel, now core.Timestamp) error {
	if len(s.Contacts) >= MaxContacts {
		return core.NewCapacityError(0, "contact list full (%d)", MaxContacts)
	}
	if _, err := s.findContact(id); err == nil {
		return core.NewError(core.KindValidationError, "contact %s already exists", id)
	}
	if level != AccessReadOnly && level != AccessFull {
		return core.NewError(core.KindValidationError, "unknown access level %d", level)
	}
	if len(info) > MaxContactInfo {
		return core.NewError(core.KindValidationError,
			"contact info %d bytes exceeds %d", len(info), MaxContactInfo)
	}
	s.Contacts = append(s.Contacts, Contact{
		ID:          id,
		ContactInfo: info,
		Level:       level,
		Status:      ContactPending,
		AddedAt:     now,
	})
	s.checkIn(now)
	return nil
}

// AcceptRole activates a pending contact. Performed by the contact, so it
// does not count as an owner check-in.
func (s *Switch) AcceptRole(id core.Identity, now core.Timestamp) error {
	i, err := s.findContact(id)
	if err != nil {
		return err
	}
	if s.Contacts[i].Status != ContactPending {
		return core.NewError(core.KindInvalidState,
			"contact %s is %s, not pending", id, s.Contacts[i].Status)
	}
	s.Contacts[i].Status = ContactActive
	s.LastModified = now
	return nil
}

// RemoveContact drops a contact. Not allowed while that contact's trigger
// is running; the owner cancels the trigger first.
func (s *Switch) RemoveContact(id core.Identity, now core.Timestamp) error {
	i, err := s.findContact(id)
	if err != nil {
		return err
	}
	if s.State == StateTriggered && s.TriggeredBy == id {
		return core.NewError(core.KindInvalidState,
			"contact %s has a pending access request", id)
	}
	s.Contacts = append(s.Contacts[:i], s.Contacts[i+1:]...)
	s.checkIn(now)
	return nil
}

// Contact returns a contact by identity.
func (s *Switch) Contact(id core.Identity) (*Contact, error) {
	i, err := s.findContact(id)
	if err != nil {
		return nil, err
	}
	return &s.Contacts[i], nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (s *Switch) checkIn(now core.Timestamp) {
	s.LastCheckIn = now
	s.LastModified = now
	if s.State == StateTriggered {
		s.State = StateArmed
		s.TriggeredAt = 0
		s.TriggeredBy = ""
	}
}

// CheckIn records owner activity. Cancels a running trigger. Released
// switches stay released; the owner rebuilds the switch after regaining
// control.
func (s *Switch) CheckIn(now core.Timestamp) error {
	if s.State == StateReleased {
		return core.NewError(core.KindInvalidState, "switch already released")
	}
	s.checkIn(now)
	return nil
}

// UpdatePeriods changes the timing configuration. Counts as a check-in.
func (s *Switch) UpdatePeriods(inactivity, grace uint64, now core.Timestamp) error {
	if inactivity < MinInactivity || inactivity > MaxInactivity {
		return core.NewError(core.KindValidationError,
			"inactivity period %ds outside [%ds, %ds]", inactivity, MinInactivity, MaxInactivity)
	}
	if grace < MinGrace {
		return core.NewError(core.KindValidationError,
			"grace period %ds below minimum %ds", grace, MinGrace)
	}
	s.InactivityPeriod = inactivity
	s.GracePeriod = grace
	s.checkIn(now)
	return nil
}

// RequestAccess starts the grace countdown. Only an active contact may
// request, and only after the owner has been inactive for the full
// inactivity period.
func (s *Switch) RequestAccess(contact core.Identity, now core.Timestamp) error {
	i, err := s.findContact(contact)
	if err != nil || s.Contacts[i].Status != ContactActive {
		return core.NewError(core.KindUnauthorized, "%s is not an active emergency contact", contact)
	}
	if s.State != StateArmed {
		return core.NewError(core.KindInvalidState, "switch is %s", s.State)
	}
	dormantAt := s.LastCheckIn + s.InactivityPeriod
	if now < dormantAt {
		return core.NewTimingError(dormantAt-now, "owner is not inactive yet")
	}
	s.State = StateTriggered
	s.TriggeredAt = now
	s.TriggeredBy = contact
	s.LastModified = now
	return nil
}

// ClaimAccess completes a trigger after the grace countdown. Returns the
// claiming contact's access level. Any active contact may claim once the
// countdown has run, not just the one who triggered it.
func (s *Switch) ClaimAccess(contact core.Identity, now core.Timestamp) (AccessLevel, error) {
	i, err := s.findContact(contact)
	if err != nil || s.Contacts[i].Status != ContactActive {
		return 0, core.NewError(core.KindUnauthorized, "%s is not an active emergency contact", contact)
	}
	if s.State != StateTriggered {
		return 0, core.NewError(core.KindInvalidState, "switch is %s", s.State)
	}
	releaseAt := s.TriggeredAt + s.GracePeriod
	if now < releaseAt {
		return 0, core.NewTimingError(releaseAt-now, "grace countdown still running")
	}
	s.State = StateReleased
	s.LastModified = now
	return s.Contacts[i].Level, nil
}

// Cancel aborts a running trigger without counting as a check-in, for the
// case where a third party cancels on the owner's documented instruction.
func (s *Switch) Cancel(now core.Timestamp) error {
	if s.State != StateTriggered {
		return core.NewError(core.KindInvalidState, "switch is %s", s.State)
	}
	s.State = StateArmed
	s.TriggeredAt = 0
	s.TriggeredBy = ""
	s.LastModified = now
	return nil
}
