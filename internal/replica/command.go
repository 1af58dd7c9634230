package replica

import (
	"errors"

	"github.com/DoyleJ11/hexmap/internal/hex"
	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/DoyleJ11/hexmap/internal/world"
)

var ErrNotPermitted = errors.New("only the host may do that")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrInvalidDice = errors.New("dice need at least one side")

type CommandType string

const (
	CmdPaint           CommandType = "Paint"
	CmdErase           CommandType = "Erase"
	CmdAddToken        CommandType = "AddToken"
	CmdMoveToken       CommandType = "MoveToken"
	CmdDescribeToken   CommandType = "DescribeToken"
	CmdSetTokenVisible CommandType = "SetTokenVisible"
	CmdReorderToken    CommandType = "ReorderToken"
	CmdDeleteToken     CommandType = "DeleteToken"
	CmdCreateScenario  CommandType = "CreateScenario"
	CmdSwitchScenario  CommandType = "SwitchScenario"
	CmdSetBackground   CommandType = "SetBackground"
	CmdClearBackground CommandType = "ClearBackground"
	CmdSetHexSize      CommandType = "SetHexSize"
	CmdRollDice        CommandType = "RollDice"
	CmdLoadSession     CommandType = "LoadSession"
)

// Command is a locally authored edit. Only the fields its Type uses are read.
type Command struct {
	Type       CommandType
	Cell       hex.Cell
	Terrain    world.Terrain
	TokenID    string
	Name       string
	ImageURL   string
	Kind       world.TokenKind
	Text       string
	Visible    bool
	Direction  world.Direction
	ScenarioID string
	Background world.Background
	HexSize    int
	Sides      int
}

// hostOnly lists the commands a guest may not originate.
var hostOnly = map[CommandType]bool{
	CmdPaint:           true,
	CmdErase:           true,
	CmdCreateScenario:  true,
	CmdSwitchScenario:  true,
	CmdSetBackground:   true,
	CmdClearBackground: true,
	CmdSetHexSize:      true,
	CmdSetTokenVisible: true,
	CmdLoadSession:     true,
}

// Permitted reports whether role may originate t locally. Hosts may do
// everything; guests may work with tokens and roll dice.
func Permitted(role peer.Role, t CommandType) bool {
	return role == peer.RoleHost || !hostOnly[t]
}
