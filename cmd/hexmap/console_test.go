package main

import (
	"bytes"
	"context"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/hexmap/internal/hex"
	"github.com/DoyleJ11/hexmap/internal/peer/peertest"
	"github.com/DoyleJ11/hexmap/internal/replica"
	"github.com/DoyleJ11/hexmap/internal/world"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubNarrator struct {
	grid   world.GridMap
	tokens []world.Token
}

func (s *stubNarrator) Narrate(_ context.Context, grid world.GridMap, tokens []world.Token) string {
	s.grid, s.tokens = grid, tokens
	return "A quiet marsh."
}

func newConsole(t *testing.T) (*console, *replica.Node, *bytes.Buffer, *stubNarrator) {
	t.Helper()
	board := peertest.NewSwitchboard()
	node := replica.NewNode(context.Background(), "HOST01", replica.Config{Username: "dm"}, world.New(), board.Dialer("HOST01"), zap.NewNop())
	t.Cleanup(node.Stop)
	out := &bytes.Buffer{}
	n := &stubNarrator{}
	c := &console{
		node:     node,
		narrator: n,
		out:      out,
		maxImage: 64,
		now:      func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return c, node, out, n
}

func current(t *testing.T, n *replica.Node) world.Scenario {
	t.Helper()
	v, err := n.State(context.Background())
	require.NoError(t, err)
	cur, ok := v.World.Current()
	require.True(t, ok)
	return cur
}

func TestConsole_PaintAndTokens(t *testing.T) {
	c, node, out, _ := newConsole(t)
	ctx := context.Background()

	require.NoError(t, c.exec(ctx, "paint 2 3 water"))
	require.NoError(t, c.exec(ctx, "paint -1 0 LAVA"))
	require.NoError(t, c.exec(ctx, "erase -1 0"))
	assert.Equal(t, world.GridMap{{Col: 2, Row: 3}: world.TerrainWater}, current(t, node).Grid)

	require.NoError(t, c.exec(ctx, "token Barrel barrel.png prop"))
	tok := current(t, node).Tokens[0]
	assert.Contains(t, out.String(), "token "+tok.ID)
	assert.Equal(t, world.KindProp, tok.Kind)
	assert.False(t, tok.IsVisible)

	require.NoError(t, c.exec(ctx, "move "+tok.ID+" 4 5"))
	require.NoError(t, c.exec(ctx, "describe "+tok.ID+" full of   ale"))
	require.NoError(t, c.exec(ctx, "show "+tok.ID))
	tok = current(t, node).Tokens[0]
	assert.Equal(t, hex.Cell{Col: 4, Row: 5}, tok.Cell())
	assert.Equal(t, "full of ale", tok.Description)
	assert.True(t, tok.IsVisible)

	require.NoError(t, c.exec(ctx, "delete "+tok.ID))
	assert.Empty(t, current(t, node).Tokens)
}

func TestConsole_Errors(t *testing.T) {
	c, _, _, _ := newConsole(t)
	ctx := context.Background()

	assert.ErrorContains(t, c.exec(ctx, "fly away"), "unknown command")
	assert.ErrorContains(t, c.exec(ctx, "paint 1 x GRASS"), "row")
	assert.ErrorContains(t, c.exec(ctx, "paint 1 1 CHEESE"), "unknown terrain")
	assert.ErrorIs(t, c.exec(ctx, "connect"), errUsage)
	assert.ErrorIs(t, c.exec(ctx, "scenario rename x"), errUsage)
	assert.ErrorIs(t, c.exec(ctx, "quit"), errQuit)
	assert.NoError(t, c.exec(ctx, "   "))
}

func TestConsole_ScenariosAndHexSize(t *testing.T) {
	c, node, out, _ := newConsole(t)
	ctx := context.Background()

	require.NoError(t, c.exec(ctx, "scenario new Sunken Crypt"))
	v, err := node.State(ctx)
	require.NoError(t, err)
	require.Len(t, v.World.Scenarios, 2)
	crypt := v.World.Scenarios[1]
	assert.Equal(t, "Sunken Crypt", crypt.Name)
	assert.Contains(t, out.String(), "scenario "+crypt.ID)

	require.NoError(t, c.exec(ctx, "scenario switch "+crypt.ID))
	require.NoError(t, c.exec(ctx, "hexsize 500"))
	cur := current(t, node)
	assert.Equal(t, crypt.ID, cur.ID)
	assert.Equal(t, world.MaxHexSize, cur.HexSize)

	out.Reset()
	require.NoError(t, c.exec(ctx, "state"))
	assert.Contains(t, out.String(), "id HOST01 (dm), host, idle")
	assert.Contains(t, out.String(), `* scenario `+crypt.ID+` "Sunken Crypt"`)
	assert.Contains(t, out.String(), "dm is in "+crypt.ID)
}

func TestConsole_Background(t *testing.T) {
	c, node, _, _ := newConsole(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, imaging.Save(imaging.New(128, 32, color.Black), path))

	require.NoError(t, c.exec(ctx, "bg "+path))
	bg := current(t, node).Background
	assert.Equal(t, 64, bg.Width)
	assert.Equal(t, 16, bg.Height)
	assert.True(t, strings.HasPrefix(bg.URL, "data:image/png;base64,"))

	require.NoError(t, c.exec(ctx, "bg clear"))
	assert.Equal(t, world.Background{}, current(t, node).Background)
}

func TestConsole_SaveAndLoad(t *testing.T) {
	c, node, _, _ := newConsole(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, c.exec(ctx, "paint 0 0 grass"))
	require.NoError(t, c.exec(ctx, "save "+path))
	require.NoError(t, c.exec(ctx, "paint 1 1 wall"))
	require.NoError(t, c.exec(ctx, "load "+path))

	assert.Equal(t, world.GridMap{{Col: 0, Row: 0}: world.TerrainGrass}, current(t, node).Grid)
	assert.Error(t, c.exec(ctx, "load "+filepath.Join(t.TempDir(), "nope.json")))
}

func TestConsole_RollAndNarrate(t *testing.T) {
	c, _, out, n := newConsole(t)
	ctx := context.Background()

	require.NoError(t, c.exec(ctx, "roll 6"))
	assert.Contains(t, out.String(), "dm rolled d6: ")
	assert.Error(t, c.exec(ctx, "roll many"))

	require.NoError(t, c.exec(ctx, "paint 3 3 stone"))
	require.NoError(t, c.exec(ctx, "narrate"))
	assert.Contains(t, out.String(), "A quiet marsh.")
	assert.Equal(t, world.GridMap{{Col: 3, Row: 3}: world.TerrainStone}, n.grid)
}

func TestConsole_RunStopsOnQuit(t *testing.T) {
	c, node, out, _ := newConsole(t)

	err := c.run(context.Background(), strings.NewReader("paint 0 0 dirt\nbogus\nquit\npaint 1 1 dirt\n"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
	assert.Equal(t, world.GridMap{{Col: 0, Row: 0}: world.TerrainDirt}, current(t, node).Grid)
}
