package types

// Status is the integer flag stored with every employee record
type Status int

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
)

// DefaultStatus is assigned on create when the caller does not supply one
const DefaultStatus = StatusActive
