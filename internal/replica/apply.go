package replica

import (
	"github.com/DoyleJ11/hexmap/internal/hex"
	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/DoyleJ11/hexmap/internal/protocol"
	"github.com/DoyleJ11/hexmap/internal/world"
	"go.uber.org/zap"
)

// local runs a command authored on this participant. Permission is checked
// before anything changes, so a refused command neither mutates nor sends.
func (n *Node) local(cmd Command) Result {
	role := n.peers.Role()
	if !Permitted(role, cmd.Type) {
		return Result{Err: ErrNotPermitted}
	}

	w := n.world
	switch cmd.Type {
	case CmdPaint:
		n.world = world.PaintTerrain(w, cmd.Cell, cmd.Terrain)
		n.sendGrid()

	case CmdErase:
		n.world = world.PaintTerrain(w, cmd.Cell, world.TerrainVoid)
		n.sendGrid()

	case CmdAddToken:
		scenarioID := cmd.ScenarioID
		if scenarioID == "" {
			scenarioID = w.CurrentScenarioID
		}
		next, id, err := world.AddToken(w, scenarioID, world.TokenSpec{
			Name:     cmd.Name,
			ImageURL: cmd.ImageURL,
			Kind:     cmd.Kind,
			Visible:  role == peer.RoleGuest,
		})
		if err != nil {
			return Result{Err: err}
		}
		n.world = next
		if scenarioID == next.CurrentScenarioID {
			n.sendTokens()
		} else {
			n.broadcast(protocol.UpdateScenarios{Scenarios: n.world.Scenarios})
		}
		return Result{ID: id}

	case CmdMoveToken:
		n.world = world.MoveToken(w, cmd.TokenID, cmd.Cell)
		n.sendTokens()

	case CmdDescribeToken:
		n.world = world.SetTokenDescription(w, cmd.TokenID, cmd.Text)
		n.sendTokens()

	case CmdSetTokenVisible:
		n.world = world.SetTokenVisibility(w, cmd.TokenID, cmd.Visible)
		n.sendTokens()

	case CmdReorderToken:
		n.world = world.ReorderToken(w, cmd.TokenID, cmd.Direction)
		n.sendTokens()

	case CmdDeleteToken:
		n.world = world.DeleteToken(w, cmd.TokenID)
		n.sendTokens()

	case CmdCreateScenario:
		next, id, err := world.CreateScenario(w, cmd.Name, cmd.Background)
		if err != nil {
			return Result{Err: err}
		}
		n.world = next
		n.broadcast(protocol.UpdateScenarios{Scenarios: n.world.Scenarios})
		return Result{ID: id}

	case CmdSwitchScenario:
		next, err := world.SwitchScenario(w, cmd.ScenarioID)
		if err != nil {
			return Result{Err: err}
		}
		n.world = next
		n.broadcast(protocol.SyncState{World: n.world})
		n.trackLocation()

	case CmdSetBackground:
		n.world = world.SetBackground(w, cmd.Background)
		n.sendBackground()

	case CmdClearBackground:
		n.world = world.ClearBackground(w)
		n.sendBackground()

	case CmdSetHexSize:
		n.world = world.SetHexSize(w, cmd.HexSize)
		n.broadcast(protocol.SyncState{World: n.world})

	case CmdRollDice:
		if cmd.Sides < 1 {
			return Result{Err: ErrInvalidDice}
		}
		d := protocol.DiceRoll{Result: n.roll(cmd.Sides), Sides: cmd.Sides, Username: n.cfg.Username}
		n.showDice(d)
		n.broadcast(d)

	default:
		return Result{Err: ErrUnsupportedCommand}
	}
	return Result{}
}

func (n *Node) sendGrid() {
	if cur, ok := n.world.Current(); ok {
		n.broadcast(protocol.UpdateGrid{Grid: cur.Grid})
	}
}

func (n *Node) sendTokens() {
	if cur, ok := n.world.Current(); ok {
		n.broadcast(protocol.UpdateChars{Tokens: cur.Tokens})
	}
}

func (n *Node) sendBackground() {
	if cur, ok := n.world.Current(); ok {
		bg := cur.Background
		n.broadcast(protocol.UpdateBG{URL: bg.URL, Width: bg.Width, Height: bg.Height})
	}
}

// receive applies one message from a link. Authority is not re-checked here:
// whatever a connected participant sends is trusted.
func (n *Node) receive(linkID string, payload []byte) {
	if !n.peers.Has(linkID) {
		return
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		n.log.Warn("dropping message", zap.String("link", linkID), zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case protocol.SyncState:
		n.world = m.World.Clone()
		n.trackLocation()

	case protocol.UpdateGrid:
		n.world = world.ReplaceGrid(n.world, m.Grid)

	case protocol.UpdateChars:
		n.world = world.ReplaceTokens(n.world, m.Tokens)
		n.relay(linkID, payload)

	case protocol.UpdateBG:
		n.world = world.SetBackground(n.world, world.Background{URL: m.URL, Width: m.Width, Height: m.Height})

	case protocol.UpdateScenarios:
		n.world = world.ReplaceScenarios(n.world, m.Scenarios)
		n.relay(linkID, payload)
		n.trackLocation()

	case protocol.DiceRoll:
		n.showDice(m)
		n.relay(linkID, payload)

	case protocol.UserLocation:
		n.world = world.SetUserLocation(n.world, world.UserLocation{Username: m.Username, ScenarioID: m.ScenarioID})
		n.relay(linkID, payload)

	case protocol.RequestMove:
		n.world = world.MoveToken(n.world, m.TokenID, hex.Cell{Col: m.X, Row: m.Y})
		if n.peers.Role() == peer.RoleHost {
			n.sendTokens()
		}
	}
}

// relay forwards a message a guest sent us to the other guests. Only hosts
// relay; a guest's single link leads back to where the message came from.
func (n *Node) relay(from string, payload []byte) {
	if n.peers.Role() != peer.RoleHost {
		return
	}
	n.peers.BroadcastExcept(from, payload)
}
