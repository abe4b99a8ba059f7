package domain

import "time"

// ActorType describes who performed a change.
type ActorType string

// ActorType values.
const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAgent  ActorType = "agent"
	ActorTypeSystem ActorType = "system"
)

// ChangeOperation describes a persisted activity operation for a board item.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate    ChangeOperation = "create"
	ChangeOperationUpdate    ChangeOperation = "update"
	ChangeOperationMove      ChangeOperation = "move"
	ChangeOperationRebalance ChangeOperation = "rebalance"
	ChangeOperationArchive   ChangeOperation = "archive"
	ChangeOperationRestore   ChangeOperation = "restore"
	ChangeOperationDelete    ChangeOperation = "delete"
)

// ChangeEvent represents a single activity-log entry for a project item.
type ChangeEvent struct {
	ID         int64
	ProjectID  string
	ItemID     string
	Operation  ChangeOperation
	ActorID    string
	ActorType  ActorType
	Metadata   map[string]string
	OccurredAt time.Time
}

// NormalizeActorType maps unknown or empty actor types onto ActorTypeUser.
func NormalizeActorType(actorType ActorType) ActorType {
	switch actorType {
	case ActorTypeUser, ActorTypeAgent, ActorTypeSystem:
		return actorType
	default:
		return ActorTypeUser
	}
}
