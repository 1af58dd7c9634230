package world

import (
	"fmt"
	"testing"

	"github.com/DoyleJ11/hexmap/internal/hex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs(t *testing.T) {
	t.Helper()
	n := 0
	prev := newID
	newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { newID = prev })
}

func currentOf(t *testing.T, w World) Scenario {
	t.Helper()
	s, ok := w.Current()
	require.True(t, ok, "world has no current scenario")
	return s
}

func withTokens(t *testing.T, names ...string) World {
	t.Helper()
	w := New()
	for _, name := range names {
		var err error
		w, _, err = AddToken(w, w.CurrentScenarioID, TokenSpec{Name: name, ImageURL: name + ".png"})
		require.NoError(t, err)
	}
	return w
}

func tokenNames(s Scenario) []string {
	out := make([]string, 0, len(s.Tokens))
	for _, tok := range s.Tokens {
		out = append(out, tok.Name)
	}
	return out
}

func TestNew_DefaultScenario(t *testing.T) {
	w := New()
	require.NoError(t, Validate(w))
	cur := currentOf(t, w)
	assert.Equal(t, DefaultScenarioID, cur.ID)
	assert.Equal(t, DefaultHexSize, cur.HexSize)
	assert.Empty(t, cur.Grid)
	assert.Empty(t, cur.Tokens)
}

func TestPaintTerrain_Idempotent(t *testing.T) {
	cell := hex.Cell{Col: 2, Row: 3}
	once := PaintTerrain(New(), cell, TerrainWater)
	twice := PaintTerrain(once, cell, TerrainWater)
	assert.Equal(t, currentOf(t, once).Grid, currentOf(t, twice).Grid)
	assert.Equal(t, GridMap{cell: TerrainWater}, currentOf(t, twice).Grid)
}

func TestPaintTerrain_EraseNeverPaintedIsNoop(t *testing.T) {
	w := PaintTerrain(New(), hex.Cell{Col: 1, Row: 1}, TerrainGrass)
	erased := PaintTerrain(w, hex.Cell{Col: 9, Row: 9}, TerrainVoid)
	assert.Equal(t, currentOf(t, w).Grid, currentOf(t, erased).Grid)
}

func TestPaintTerrain_VoidRemovesKey(t *testing.T) {
	cell := hex.Cell{Col: -4, Row: 7}
	w := PaintTerrain(New(), cell, TerrainLava)
	w = PaintTerrain(w, cell, TerrainVoid)
	_, present := currentOf(t, w).Grid[cell]
	assert.False(t, present)
	require.NoError(t, Validate(w))
}

func TestPaintTerrain_DoesNotMutateInput(t *testing.T) {
	before := New()
	_ = PaintTerrain(before, hex.Cell{}, TerrainStone)
	assert.Empty(t, currentOf(t, before).Grid)
}

func TestAddToken(t *testing.T) {
	sequentialIDs(t)
	w := New()

	w, id, err := AddToken(w, DefaultScenarioID, TokenSpec{Name: "Knight", ImageURL: "knight.png", Visible: false})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	w, _, err = AddToken(w, DefaultScenarioID, TokenSpec{Name: "Barrel", Kind: KindProp, Visible: true})
	require.NoError(t, err)

	cur := currentOf(t, w)
	require.Len(t, cur.Tokens, 2)
	knight := cur.Tokens[0]
	assert.Equal(t, hex.Cell{}, knight.Cell())
	assert.Equal(t, KindCharacter, knight.Kind)
	assert.Equal(t, 1, knight.Size)
	assert.False(t, knight.IsVisible)
	assert.Equal(t, "Barrel", cur.Tokens[1].Name, "new tokens go on top")
	assert.True(t, cur.Tokens[1].IsVisible)
}

func TestAddToken_Errors(t *testing.T) {
	w := New()
	_, _, err := AddToken(w, "nope", TokenSpec{Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownScenario)

	_, _, err = AddToken(w, DefaultScenarioID, TokenSpec{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestTokenMutators_UnknownIDIsNoop(t *testing.T) {
	w := withTokens(t, "a", "b")
	cases := []struct {
		name string
		fn   func(World) World
	}{
		{name: "move", fn: func(w World) World { return MoveToken(w, "ghost", hex.Cell{Col: 5, Row: 5}) }},
		{name: "describe", fn: func(w World) World { return SetTokenDescription(w, "ghost", "boo") }},
		{name: "visibility", fn: func(w World) World { return SetTokenVisibility(w, "ghost", true) }},
		{name: "reorder", fn: func(w World) World { return ReorderToken(w, "ghost", Up) }},
		{name: "delete", fn: func(w World) World { return DeleteToken(w, "ghost") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, w, tc.fn(w))
		})
	}
}

func TestTokenMutators(t *testing.T) {
	w := withTokens(t, "a", "b")
	id := currentOf(t, w).Tokens[0].ID

	w = MoveToken(w, id, hex.Cell{Col: 3, Row: -2})
	w = SetTokenDescription(w, id, "tall")
	w = SetTokenVisibility(w, id, true)

	tok := currentOf(t, w).Tokens[0]
	assert.Equal(t, hex.Cell{Col: 3, Row: -2}, tok.Cell())
	assert.Equal(t, "tall", tok.Description)
	assert.True(t, tok.IsVisible)

	w = DeleteToken(w, id)
	assert.Equal(t, []string{"b"}, tokenNames(currentOf(t, w)))
}

func TestReorderToken(t *testing.T) {
	w := withTokens(t, "a", "b", "c")
	ids := map[string]string{}
	for _, tok := range currentOf(t, w).Tokens {
		ids[tok.Name] = tok.ID
	}

	cases := []struct {
		name  string
		token string
		dir   Direction
		want  []string
	}{
		{name: "middle up", token: "b", dir: Up, want: []string{"a", "c", "b"}},
		{name: "middle down", token: "b", dir: Down, want: []string{"b", "a", "c"}},
		{name: "top up clamps", token: "c", dir: Up, want: []string{"a", "b", "c"}},
		{name: "bottom down clamps", token: "a", dir: Down, want: []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReorderToken(w, ids[tc.token], tc.dir)
			assert.Equal(t, tc.want, tokenNames(currentOf(t, got)))
		})
	}
}

func TestScenarios(t *testing.T) {
	sequentialIDs(t)
	w := New()

	w, id, err := CreateScenario(w, "Cave", Background{URL: "cave.png", Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, DefaultScenarioID, w.CurrentScenarioID, "create does not switch")
	require.Len(t, w.Scenarios, 2)

	cave, ok := w.Scenario(id)
	require.True(t, ok)
	assert.Equal(t, DefaultHexSize, cave.HexSize)
	assert.Equal(t, "cave.png", cave.Background.URL)

	_, _, err = CreateScenario(w, "", Background{})
	assert.ErrorIs(t, err, ErrEmptyName)

	switched, err := SwitchScenario(w, id)
	require.NoError(t, err)
	assert.Equal(t, id, switched.CurrentScenarioID)

	same, err := SwitchScenario(w, "missing")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.Equal(t, w, same)
}

func TestBackgroundAndHexSize(t *testing.T) {
	w := SetBackground(New(), Background{URL: "data:image/png;base64,AAAA", Width: 1200, Height: 900})
	cur := currentOf(t, w)
	width, height := cur.Background.Dimensions()
	assert.Equal(t, 1200, width)
	assert.Equal(t, 900, height)

	w = ClearBackground(w)
	width, height = currentOf(t, w).Background.Dimensions()
	assert.Equal(t, DefaultBackgroundPx, width)
	assert.Equal(t, DefaultBackgroundPx, height)
	assert.Empty(t, currentOf(t, w).Background.URL)

	for _, tc := range []struct{ in, want int }{{1, MinHexSize}, {60, 60}, {500, MaxHexSize}} {
		assert.Equal(t, tc.want, currentOf(t, SetHexSize(w, tc.in)).HexSize)
	}
}

func TestSetUserLocation_LastWriteWins(t *testing.T) {
	w := SetUserLocation(New(), UserLocation{Username: "ana", ScenarioID: "default"})
	w = SetUserLocation(w, UserLocation{Username: "bo", ScenarioID: "default"})
	w = SetUserLocation(w, UserLocation{Username: "ana", ScenarioID: "cave"})

	require.Len(t, w.UserLocations, 2)
	assert.Equal(t, "cave", w.UserLocations["ana"].ScenarioID)
}

func TestReplaceScenarios_KeepsCurrentValid(t *testing.T) {
	w := New()
	got := ReplaceScenarios(w, []Scenario{NewScenario("other", "Other", 30)})
	assert.Equal(t, "other", got.CurrentScenarioID)
	require.NoError(t, Validate(got))

	assert.Equal(t, w, ReplaceScenarios(w, nil))
}

func TestValidate(t *testing.T) {
	bad := New()
	bad.CurrentScenarioID = "missing"
	assert.ErrorIs(t, Validate(bad), ErrInvalidWorld)
	assert.ErrorIs(t, Validate(bad), ErrUnknownScenario)

	dup := New()
	dup.Scenarios = append(dup.Scenarios, NewScenario(DefaultScenarioID, "again", 40))
	assert.ErrorIs(t, Validate(dup), ErrInvalidWorld)

	assert.ErrorIs(t, Validate(World{}), ErrInvalidWorld)

	for _, size := range []int{0, MinHexSize - 1, MaxHexSize + 1} {
		w := New()
		w.Scenarios[0].HexSize = size
		assert.ErrorIs(t, Validate(w), ErrInvalidWorld, size)
	}

	w, id, err := AddToken(New(), DefaultScenarioID, TokenSpec{Name: "Orc"})
	require.NoError(t, err)
	w, caveID, err := CreateScenario(w, "Cave", Background{})
	require.NoError(t, err)
	require.NoError(t, Validate(w))
	i := w.scenarioIndex(caveID)
	w.Scenarios[i].Tokens = append(w.Scenarios[i].Tokens, Token{ID: id, Name: "Copy", Size: 1, Kind: KindCharacter})
	assert.ErrorIs(t, Validate(w), ErrInvalidWorld, "token ids are unique across scenarios")
}

func TestClone_IsDeep(t *testing.T) {
	w := withTokens(t, "a")
	w = PaintTerrain(w, hex.Cell{}, TerrainDirt)
	c := w.Clone()
	c.Scenarios[0].Grid[hex.Cell{Col: 1}] = TerrainWall
	c.Scenarios[0].Tokens[0].Name = "changed"
	c.UserLocations["x"] = UserLocation{Username: "x"}

	assert.Len(t, currentOf(t, w).Grid, 1)
	assert.Equal(t, "a", currentOf(t, w).Tokens[0].Name)
	assert.Empty(t, w.UserLocations)
}
