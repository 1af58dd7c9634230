package world

import (
	"slices"
	"strings"

	"github.com/DoyleJ11/hexmap/internal/hex"
	"github.com/google/uuid"
)

// newID is swapped in tests for deterministic ids.
var newID = uuid.NewString

type Direction int

const (
	Up Direction = iota
	Down
)

// TokenSpec describes a token to add. Visible is decided by the caller: tokens
// placed by the host start hidden.
type TokenSpec struct {
	Name     string
	ImageURL string
	Kind     TokenKind
	Visible  bool
}

// withCurrent applies fn to a copy of the current scenario.
func withCurrent(w World, fn func(*Scenario)) World {
	i := w.scenarioIndex(w.CurrentScenarioID)
	if i < 0 {
		return w
	}
	out := w
	out.Scenarios = slices.Clone(w.Scenarios)
	s := w.Scenarios[i].Clone()
	fn(&s)
	out.Scenarios[i] = s
	return out
}

// PaintTerrain sets cell to t on the current scenario. Painting void erases.
func PaintTerrain(w World, cell hex.Cell, t Terrain) World {
	return withCurrent(w, func(s *Scenario) {
		if t == TerrainVoid || t == "" {
			delete(s.Grid, cell)
			return
		}
		s.Grid[cell] = t
	})
}

// AddToken appends a token at (0,0) to the given scenario, on top of the
// z-order, and returns its id.
func AddToken(w World, scenarioID string, spec TokenSpec) (World, string, error) {
	i := w.scenarioIndex(scenarioID)
	if i < 0 {
		return w, "", ErrUnknownScenario
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return w, "", ErrEmptyName
	}
	kind := spec.Kind
	if kind == "" {
		kind = KindCharacter
	}
	tok := Token{
		ID:        newID(),
		Name:      name,
		ImageURL:  spec.ImageURL,
		Size:      1,
		IsVisible: spec.Visible,
		Kind:      kind,
	}
	out := w
	out.Scenarios = slices.Clone(w.Scenarios)
	s := w.Scenarios[i].Clone()
	s.Tokens = append(s.Tokens, tok)
	out.Scenarios[i] = s
	return out, tok.ID, nil
}

func updateToken(w World, id string, fn func(*Token)) World {
	cur, ok := w.Current()
	if !ok || !slices.ContainsFunc(cur.Tokens, func(t Token) bool { return t.ID == id }) {
		return w
	}
	return withCurrent(w, func(s *Scenario) {
		for i := range s.Tokens {
			if s.Tokens[i].ID == id {
				fn(&s.Tokens[i])
			}
		}
	})
}

// MoveToken is a no-op for an unknown id.
func MoveToken(w World, id string, cell hex.Cell) World {
	return updateToken(w, id, func(t *Token) {
		t.X, t.Y = cell.Col, cell.Row
	})
}

func SetTokenDescription(w World, id, text string) World {
	return updateToken(w, id, func(t *Token) { t.Description = text })
}

func SetTokenVisibility(w World, id string, visible bool) World {
	return updateToken(w, id, func(t *Token) { t.IsVisible = visible })
}

// ReorderToken swaps the token with its neighbour in z-order. Moving the top
// token up or the bottom token down leaves the order unchanged.
func ReorderToken(w World, id string, dir Direction) World {
	cur, ok := w.Current()
	if !ok {
		return w
	}
	i := slices.IndexFunc(cur.Tokens, func(t Token) bool { return t.ID == id })
	if i < 0 {
		return w
	}
	j := i + 1
	if dir == Down {
		j = i - 1
	}
	if j < 0 || j >= len(cur.Tokens) {
		return w
	}
	return withCurrent(w, func(s *Scenario) {
		s.Tokens[i], s.Tokens[j] = s.Tokens[j], s.Tokens[i]
	})
}

func DeleteToken(w World, id string) World {
	cur, ok := w.Current()
	if !ok || !slices.ContainsFunc(cur.Tokens, func(t Token) bool { return t.ID == id }) {
		return w
	}
	return withCurrent(w, func(s *Scenario) {
		s.Tokens = slices.DeleteFunc(s.Tokens, func(t Token) bool { return t.ID == id })
	})
}

// CreateScenario appends an empty scenario that inherits the default hex size.
// The current scenario does not change.
func CreateScenario(w World, name string, bg Background) (World, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return w, "", ErrEmptyName
	}
	s := NewScenario(newID(), name, DefaultHexSize)
	s.Background = bg
	out := w
	out.Scenarios = append(slices.Clone(w.Scenarios), s)
	return out, s.ID, nil
}

// SwitchScenario returns ErrUnknownScenario and w unchanged for an unknown id.
func SwitchScenario(w World, id string) (World, error) {
	if w.scenarioIndex(id) < 0 {
		return w, ErrUnknownScenario
	}
	out := w
	out.CurrentScenarioID = id
	return out, nil
}

func SetBackground(w World, bg Background) World {
	return withCurrent(w, func(s *Scenario) { s.Background = bg })
}

func ClearBackground(w World) World {
	return SetBackground(w, Background{})
}

// SetHexSize clamps n to [MinHexSize, MaxHexSize].
func SetHexSize(w World, n int) World {
	n = min(max(n, MinHexSize), MaxHexSize)
	return withCurrent(w, func(s *Scenario) { s.HexSize = n })
}

// SetUserLocation keeps one entry per username; the newest wins.
func SetUserLocation(w World, loc UserLocation) World {
	if loc.Username == "" {
		return w
	}
	out := w
	out.UserLocations = make(map[string]UserLocation, len(w.UserLocations)+1)
	for k, v := range w.UserLocations {
		out.UserLocations[k] = v
	}
	out.UserLocations[loc.Username] = loc
	return out
}

// ReplaceGrid swaps the current scenario's whole grid.
func ReplaceGrid(w World, g GridMap) World {
	g = g.Normalize()
	return withCurrent(w, func(s *Scenario) { s.Grid = g })
}

// ReplaceTokens swaps the current scenario's whole token list.
func ReplaceTokens(w World, tokens []Token) World {
	tokens = CloneTokens(tokens)
	return withCurrent(w, func(s *Scenario) { s.Tokens = tokens })
}

// ReplaceScenarios swaps the scenario collection. An empty collection is
// ignored. If the current scenario disappears the first one becomes current.
func ReplaceScenarios(w World, list []Scenario) World {
	if len(list) == 0 {
		return w
	}
	out := w
	out.Scenarios = CloneScenarios(list)
	for i := range out.Scenarios {
		out.Scenarios[i] = NormalizeScenario(out.Scenarios[i])
	}
	if out.scenarioIndex(out.CurrentScenarioID) < 0 {
		out.CurrentScenarioID = out.Scenarios[0].ID
	}
	return out
}
