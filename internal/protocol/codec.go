package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/hexmap/internal/world"
)

var ErrUnknownMessage = errors.New("unknown message type")
var ErrMalformedMessage = errors.New("malformed message")

type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode serializes m into its wire envelope.
func Encode(m Message) ([]byte, error) {
	var payload any
	switch msg := m.(type) {
	case SyncState:
		payload = msg.World
	case UpdateGrid:
		payload = nonNilGrid(msg.Grid)
	case UpdateChars:
		payload = nonNilTokens(msg.Tokens)
	case UpdateScenarios:
		payload = msg.Scenarios
	case UpdateBG, DiceRoll, UserLocation, RequestMove:
		payload = msg
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return json.Marshal(envelope{Type: m.Type(), Payload: raw})
}

// Decode parses a wire envelope. Unknown tags yield ErrUnknownMessage; a known
// tag with an unusable payload yields ErrMalformedMessage.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch env.Type {
	case TypeSyncState:
		var w world.World
		if err := unmarshalPayload(env, &w); err != nil {
			return nil, err
		}
		w = world.Normalize(w)
		if err := world.Validate(w); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, env.Type, err)
		}
		return SyncState{World: w}, nil

	case TypeUpdateGrid:
		var g world.GridMap
		if err := unmarshalPayload(env, &g); err != nil {
			return nil, err
		}
		return UpdateGrid{Grid: g.Normalize()}, nil

	case TypeUpdateChars:
		var tokens []world.Token
		if err := unmarshalPayload(env, &tokens); err != nil {
			return nil, err
		}
		return UpdateChars{Tokens: world.NormalizeTokens(tokens)}, nil

	case TypeUpdateScenarios:
		var list []world.Scenario
		if err := unmarshalPayload(env, &list); err != nil {
			return nil, err
		}
		for i := range list {
			list[i] = world.NormalizeScenario(list[i])
		}
		if err := world.ValidateScenarios(list); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, env.Type, err)
		}
		return UpdateScenarios{Scenarios: list}, nil

	case TypeUpdateBG:
		var m UpdateBG
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil

	case TypeDiceRoll:
		var m DiceRoll
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil

	case TypeUserLocation:
		var m UserLocation
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		if m.Username == "" {
			return nil, fmt.Errorf("%w: %s: missing username", ErrMalformedMessage, env.Type)
		}
		return m, nil

	case TypeRequestMove:
		var m RequestMove
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func unmarshalPayload(env envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s: missing payload", ErrMalformedMessage, env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedMessage, env.Type, err)
	}
	return nil
}

func nonNilGrid(g world.GridMap) world.GridMap {
	if g == nil {
		return world.GridMap{}
	}
	return g
}

func nonNilTokens(t []world.Token) []world.Token {
	if t == nil {
		return []world.Token{}
	}
	return t
}
