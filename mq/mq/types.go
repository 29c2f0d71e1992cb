package mq

import (
	"time"

	"github.com/google/uuid"
)

type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
	ActionCnt
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// RecordKind tells subscribers whether a ledger event concerns a trip
// or a flight record.
type RecordKind string

const (
	RecordKindTrip   RecordKind = "trip"
	RecordKindFlight RecordKind = "flight"
)

// LedgerRecordMessage announces that the derived totals of a trip or
// flight record changed. Subscribers filter by driver.
type LedgerRecordMessage struct {
	ID          uuid.UUID
	Kind        RecordKind
	DriverID    uuid.UUID
	TotalIncome float64
	NetProfit   float64
	DriverOwes  float64
}

func (m LedgerRecordMessage) GetTopic() uuid.UUID {
	return m.DriverID
}

// DriftMessage reports a single field whose stored value disagreed
// with a recomputation from raw entries.
type DriftMessage struct {
	RecordID uuid.UUID
	Kind     RecordKind
	DriverID uuid.UUID
	Field    string
	From     string
	To       string
	At       time.Time
}

func (m DriftMessage) GetTopic() uuid.UUID {
	return m.DriverID
}
