// Package timeouts defines shared timeout constants used across the session
// core. Centralizing these values prevents drift between the confirmation
// dialog, the session timers, and their tests, and makes the durations
// discoverable.
package timeouts

import "time"

// QualifierSelect caps the wait for a participant's qualifier multi-select
// response during claim confirmation.
const QualifierSelect = 2 * time.Minute

// LevelSelect caps the wait for a participant's level choice for a single
// qualifier during claim confirmation.
const LevelSelect = 2 * time.Minute

// BinaryConfirm caps the wait for the yes/no confirmation used when an option
// offers no qualifier candidates.
const BinaryConfirm = 15 * time.Second

// StaffResponse caps how long a finished session waits for an operator control
// action before aborting itself.
const StaffResponse = 10 * time.Minute
