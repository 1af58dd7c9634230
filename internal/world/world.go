// Package world holds the shared scene: scenarios with their terrain grid and
// tokens, the current scenario pointer, and where each user is looking.
//
// Every mutator takes a World and returns the updated World. The input is never
// modified, so a value handed to another goroutine stays stable.
package world

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/DoyleJ11/hexmap/internal/hex"
)

// SchemaVersion is the version stamped on Worlds created by this build.
const SchemaVersion = 2

const (
	DefaultScenarioID   = "default"
	DefaultScenarioName = "Default"
	DefaultHexSize      = 40
	MinHexSize          = 5
	MaxHexSize          = 200
	DefaultBackgroundPx = 2000
)

var ErrUnknownScenario = errors.New("unknown scenario")
var ErrEmptyName = errors.New("name must not be empty")
var ErrInvalidWorld = errors.New("invalid world")

type TokenKind string

const (
	KindCharacter TokenKind = "character"
	KindProp      TokenKind = "prop"
)

// GridMap is sparse: a cell without an entry is void.
type GridMap map[hex.Cell]Terrain

// Token is a character or prop standing on the map.
type Token struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Size        int       `json:"size"`
	IsVisible   bool      `json:"isVisible"`
	Kind        TokenKind `json:"type"`
}

func (t Token) Cell() hex.Cell { return hex.Cell{Col: t.X, Row: t.Y} }

// Background is the image drawn under the grid. Width and Height are the
// declared pixel size; zero means unknown.
type Background struct {
	URL    string `json:"url,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Dimensions returns the declared size, falling back to 2000x2000.
func (b Background) Dimensions() (int, int) {
	w, h := b.Width, b.Height
	if w <= 0 {
		w = DefaultBackgroundPx
	}
	if h <= 0 {
		h = DefaultBackgroundPx
	}
	return w, h
}

// Scenario is one named sub-map. Tokens are ordered by z-rank: later entries
// draw on top.
type Scenario struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Background Background `json:"background"`
	Grid       GridMap    `json:"grid"`
	Tokens     []Token    `json:"characters"`
	HexSize    int        `json:"hexSize"`
}

type UserLocation struct {
	Username   string `json:"username"`
	ScenarioID string `json:"scenarioId"`
}

// World is the unit of full synchronization.
type World struct {
	Version           int                     `json:"version"`
	Scenarios         []Scenario              `json:"scenarios"`
	CurrentScenarioID string                  `json:"currentScenarioId"`
	UserLocations     map[string]UserLocation `json:"userLocations"`
}

// New returns a World holding one empty default scenario.
func New() World {
	return World{
		Version:           SchemaVersion,
		Scenarios:         []Scenario{NewScenario(DefaultScenarioID, DefaultScenarioName, DefaultHexSize)},
		CurrentScenarioID: DefaultScenarioID,
		UserLocations:     map[string]UserLocation{},
	}
}

func NewScenario(id, name string, hexSize int) Scenario {
	return Scenario{
		ID:      id,
		Name:    name,
		Grid:    GridMap{},
		Tokens:  []Token{},
		HexSize: hexSize,
	}
}

// Current returns the current scenario. ok is false only for a World that
// breaks the current-pointer invariant.
func (w World) Current() (Scenario, bool) {
	i := w.scenarioIndex(w.CurrentScenarioID)
	if i < 0 {
		return Scenario{}, false
	}
	return w.Scenarios[i], true
}

func (w World) Scenario(id string) (Scenario, bool) {
	i := w.scenarioIndex(id)
	if i < 0 {
		return Scenario{}, false
	}
	return w.Scenarios[i], true
}

func (w World) scenarioIndex(id string) int {
	return slices.IndexFunc(w.Scenarios, func(s Scenario) bool { return s.ID == id })
}

// Clone returns a deep copy.
func (w World) Clone() World {
	out := w
	out.Scenarios = CloneScenarios(w.Scenarios)
	out.UserLocations = maps.Clone(w.UserLocations)
	if out.UserLocations == nil {
		out.UserLocations = map[string]UserLocation{}
	}
	return out
}

func (s Scenario) Clone() Scenario {
	out := s
	out.Grid = s.Grid.Clone()
	out.Tokens = CloneTokens(s.Tokens)
	return out
}

func CloneScenarios(in []Scenario) []Scenario {
	out := make([]Scenario, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func CloneTokens(in []Token) []Token {
	out := make([]Token, len(in))
	copy(out, in)
	return out
}

func (g GridMap) Clone() GridMap {
	out := make(GridMap, len(g))
	maps.Copy(out, g)
	return out
}

// Normalize drops void entries.
func (g GridMap) Normalize() GridMap {
	out := make(GridMap, len(g))
	for c, t := range g {
		if t != TerrainVoid && t != "" {
			out[c] = t
		}
	}
	return out
}

// Validate checks the aggregate invariants.
func Validate(w World) error {
	if err := ValidateScenarios(w.Scenarios); err != nil {
		return err
	}
	if w.scenarioIndex(w.CurrentScenarioID) < 0 {
		return fmt.Errorf("%w: current scenario %q: %w", ErrInvalidWorld, w.CurrentScenarioID, ErrUnknownScenario)
	}
	return nil
}

// ValidateScenarios checks a scenario collection on its own: at least one
// scenario, unique non-empty scenario and token ids, no stored void cells and
// hex sizes within [MinHexSize, MaxHexSize].
func ValidateScenarios(list []Scenario) error {
	if len(list) == 0 {
		return fmt.Errorf("%w: no scenarios", ErrInvalidWorld)
	}
	seen := make(map[string]bool, len(list))
	tokens := make(map[string]bool)
	for _, s := range list {
		if s.ID == "" {
			return fmt.Errorf("%w: scenario without id", ErrInvalidWorld)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate scenario %q", ErrInvalidWorld, s.ID)
		}
		seen[s.ID] = true
		if s.HexSize < MinHexSize || s.HexSize > MaxHexSize {
			return fmt.Errorf("%w: scenario %q hex size %d out of range", ErrInvalidWorld, s.ID, s.HexSize)
		}
		for c, t := range s.Grid {
			if t == TerrainVoid {
				return fmt.Errorf("%w: scenario %q stores void at %s", ErrInvalidWorld, s.ID, c)
			}
		}
		for _, tok := range s.Tokens {
			if tokens[tok.ID] {
				return fmt.Errorf("%w: duplicate token %q", ErrInvalidWorld, tok.ID)
			}
			tokens[tok.ID] = true
		}
	}
	return nil
}

// Normalize fills defaults on data that came off the wire or from a file:
// void cells dropped, nil collections made empty, token size and kind set,
// hex size clamped.
func Normalize(w World) World {
	out := w.Clone()
	for i := range out.Scenarios {
		out.Scenarios[i] = NormalizeScenario(out.Scenarios[i])
	}
	return out
}

func NormalizeScenario(s Scenario) Scenario {
	s.Grid = s.Grid.Normalize()
	s.Tokens = NormalizeTokens(s.Tokens)
	if s.HexSize <= 0 {
		s.HexSize = DefaultHexSize
	}
	s.HexSize = min(max(s.HexSize, MinHexSize), MaxHexSize)
	return s
}

// NormalizeTokens returns a copy of tokens with size and kind defaulted.
func NormalizeTokens(tokens []Token) []Token {
	out := CloneTokens(tokens)
	for i := range out {
		if out[i].Size <= 0 {
			out[i].Size = 1
		}
		if out[i].Kind == "" {
			out[i].Kind = KindCharacter
		}
	}
	return out
}
