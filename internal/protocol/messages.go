// Package protocol defines the messages participants exchange over their links
// and their JSON wire form.
//
// On the wire every message is an envelope:
//
//	{"type": "UPDATE_GRID", "payload": {...}}
//
// Token, grid and scenario updates always carry the whole collection, never a
// delta.
package protocol

import (
	"github.com/DoyleJ11/hexmap/internal/world"
)

type Type string

const (
	TypeSyncState       Type = "SYNC_STATE"
	TypeUpdateGrid      Type = "UPDATE_GRID"
	TypeUpdateChars     Type = "UPDATE_CHARS"
	TypeUpdateBG        Type = "UPDATE_BG"
	TypeUpdateScenarios Type = "UPDATE_SCENARIOS"
	TypeDiceRoll        Type = "DICE_ROLL"
	TypeUserLocation    Type = "USER_LOCATION"
	TypeRequestMove     Type = "REQUEST_MOVE"
)

// Message is one of the variants below; the set is closed.
type Message interface {
	Type() Type
	isMessage()
}

// SyncState carries the sender's whole World.
type SyncState struct {
	World world.World
}

// UpdateGrid replaces the grid of the receiver's current scenario.
type UpdateGrid struct {
	Grid world.GridMap
}

// UpdateChars replaces the token list of the receiver's current scenario.
type UpdateChars struct {
	Tokens []world.Token
}

type UpdateBG struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type UpdateScenarios struct {
	Scenarios []world.Scenario
}

// DiceRoll is shown for a while and never stored in the World.
type DiceRoll struct {
	Result   int    `json:"result"`
	Sides    int    `json:"sides"`
	Username string `json:"username"`
}

type UserLocation struct {
	Username   string `json:"username"`
	ScenarioID string `json:"scenarioId"`
}

type RequestMove struct {
	TokenID string `json:"tokenId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

func (SyncState) Type() Type       { return TypeSyncState }
func (UpdateGrid) Type() Type      { return TypeUpdateGrid }
func (UpdateChars) Type() Type     { return TypeUpdateChars }
func (UpdateBG) Type() Type        { return TypeUpdateBG }
func (UpdateScenarios) Type() Type { return TypeUpdateScenarios }
func (DiceRoll) Type() Type        { return TypeDiceRoll }
func (UserLocation) Type() Type    { return TypeUserLocation }
func (RequestMove) Type() Type     { return TypeRequestMove }

func (SyncState) isMessage()       {}
func (UpdateGrid) isMessage()      {}
func (UpdateChars) isMessage()     {}
func (UpdateBG) isMessage()        {}
func (UpdateScenarios) isMessage() {}
func (DiceRoll) isMessage()        {}
func (UserLocation) isMessage()    {}
func (RequestMove) isMessage()     {}
