// Package events defines the notifications emitted by the matching engine
// and the publisher capability that carries them.
//
// Topics:
//   - opportunity.detected: a new consolidation opportunity was stored
//   - opportunity.completed: an opportunity was executed by a handshake
//   - synergy.match: high probability matches from an advisory search
package events

import (
	"context"

	"github.com/kilianp07/haulshare/core/logger"
)

const (
	TopicOpportunityDetected  = "opportunity.detected"
	TopicOpportunityCompleted = "opportunity.completed"
	TopicSynergyMatch         = "synergy.match"
)

// Event is a message addressed to a topic.
type Event interface {
	Topic() string
}

// OpportunityDetected is emitted after a detected opportunity is committed.
type OpportunityDetected struct {
	OpportunityID string `json:"opportunityId"`
	TruckA        string `json:"truckA"`
	TruckB        string `json:"truckB"`
	Hub           string `json:"hub"`
	CarbonSaved   int64  `json:"carbonSaved"`
}

func (OpportunityDetected) Topic() string { return TopicOpportunityDetected }

// OpportunityCompleted is emitted after a handshake commits.
type OpportunityCompleted struct {
	OpportunityID  string `json:"opportunityId"`
	AssignedDriver string `json:"assignedDriver"`
}

func (OpportunityCompleted) Topic() string { return TopicOpportunityCompleted }

// SynergyMatch batches the high probability matches of one search.
type SynergyMatch struct {
	SearchingTruck string         `json:"searchingTruck"`
	Matches        []SynergyEntry `json:"matches"`
}

// SynergyEntry is one candidate inside a SynergyMatch.
type SynergyEntry struct {
	TruckID    string  `json:"truckId"`
	DeliveryID string  `json:"deliveryId"`
	DistanceKm float64 `json:"distanceKm"`
}

func (SynergyMatch) Topic() string { return TopicSynergyMatch }

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Emit publishes ev and only logs failures. Callers use it after a commit
// so a broken transport never undoes stored state.
func Emit(ctx context.Context, p Publisher, log logger.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.OrNop(log).Warnf("publish %s failed: %v", ev.Topic(), err)
	}
}
