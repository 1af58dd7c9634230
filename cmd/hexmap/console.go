package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/hexmap/internal/asset"
	"github.com/DoyleJ11/hexmap/internal/hex"
	"github.com/DoyleJ11/hexmap/internal/narrative"
	"github.com/DoyleJ11/hexmap/internal/replica"
	"github.com/DoyleJ11/hexmap/internal/session"
	"github.com/DoyleJ11/hexmap/internal/world"
)

var errQuit = errors.New("quit")
var errUsage = errors.New("usage")

// participant is the part of replica.Node the console drives.
type participant interface {
	Do(ctx context.Context, cmd replica.Command) (string, error)
	Connect(ctx context.Context, remoteID string) error
	Load(ctx context.Context, w world.World) error
	State(ctx context.Context) (replica.View, error)
	Export(ctx context.Context, now time.Time) (session.Document, error)
}

type console struct {
	node           participant
	narrator       narrative.Narrator
	narrateTimeout time.Duration
	out            io.Writer
	maxImage       int
	now            func() time.Time
}

const help = `commands:
  id | state | quit
  connect <id>
  paint <col> <row> <terrain> | erase <col> <row>
  token <name> <image> [prop] | move <id> <col> <row> | describe <id> <text>
  show <id> | hide <id> | up <id> | down <id> | delete <id>
  scenario new <name> | scenario switch <id>
  bg <file> | bg clear | hexsize <n> | roll <sides>
  save <file> | load <file> | narrate`

// run reads commands from in until quit, EOF or ctx ends.
func (c *console) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, help)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := c.exec(ctx, line)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case errors.Is(err, errUsage):
				fmt.Fprintln(c.out, help)
			case err != nil:
				fmt.Fprintln(c.out, "error:", err)
			}
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil
	}
	arg := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}
	rest := func(i int) string {
		if i < len(f) {
			return strings.Join(f[i:], " ")
		}
		return ""
	}

	switch f[0] {
	case "quit", "exit":
		return errQuit

	case "id":
		v, err := c.node.State(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, v.SelfID)
		return nil

	case "state":
		v, err := c.node.State(ctx)
		if err != nil {
			return err
		}
		c.printState(v)
		return nil

	case "connect":
		if arg(1) == "" {
			return errUsage
		}
		if err := c.node.Connect(ctx, arg(1)); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "connected to", arg(1))
		return nil

	case "paint":
		cell, err := parseCell(arg(1), arg(2))
		if err != nil {
			return err
		}
		t, err := world.ParseTerrain(strings.ToUpper(arg(3)))
		if err != nil {
			return err
		}
		return c.do(ctx, replica.Command{Type: replica.CmdPaint, Cell: cell, Terrain: t})

	case "erase":
		cell, err := parseCell(arg(1), arg(2))
		if err != nil {
			return err
		}
		return c.do(ctx, replica.Command{Type: replica.CmdErase, Cell: cell})

	case "token":
		if arg(1) == "" {
			return errUsage
		}
		kind := world.KindCharacter
		if arg(3) == "prop" {
			kind = world.KindProp
		}
		id, err := c.node.Do(ctx, replica.Command{Type: replica.CmdAddToken, Name: arg(1), ImageURL: arg(2), Kind: kind})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "token", id)
		return nil

	case "move":
		cell, err := parseCell(arg(2), arg(3))
		if err != nil {
			return err
		}
		return c.do(ctx, replica.Command{Type: replica.CmdMoveToken, TokenID: arg(1), Cell: cell})

	case "describe":
		return c.do(ctx, replica.Command{Type: replica.CmdDescribeToken, TokenID: arg(1), Text: rest(2)})

	case "show", "hide":
		return c.do(ctx, replica.Command{Type: replica.CmdSetTokenVisible, TokenID: arg(1), Visible: f[0] == "show"})

	case "up", "down":
		dir := world.Up
		if f[0] == "down" {
			dir = world.Down
		}
		return c.do(ctx, replica.Command{Type: replica.CmdReorderToken, TokenID: arg(1), Direction: dir})

	case "delete":
		return c.do(ctx, replica.Command{Type: replica.CmdDeleteToken, TokenID: arg(1)})

	case "scenario":
		switch arg(1) {
		case "new":
			id, err := c.node.Do(ctx, replica.Command{Type: replica.CmdCreateScenario, Name: rest(2)})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, "scenario", id)
			return nil
		case "switch":
			return c.do(ctx, replica.Command{Type: replica.CmdSwitchScenario, ScenarioID: arg(2)})
		}
		return errUsage

	case "bg":
		switch arg(1) {
		case "":
			return errUsage
		case "clear":
			return c.do(ctx, replica.Command{Type: replica.CmdClearBackground})
		}
		bg, err := asset.Open(rest(1), c.maxImage)
		if err != nil {
			return err
		}
		return c.do(ctx, replica.Command{Type: replica.CmdSetBackground, Background: bg})

	case "hexsize":
		n, err := strconv.Atoi(arg(1))
		if err != nil {
			return fmt.Errorf("hex size: %w", err)
		}
		return c.do(ctx, replica.Command{Type: replica.CmdSetHexSize, HexSize: n})

	case "roll":
		sides, err := strconv.Atoi(arg(1))
		if err != nil {
			return fmt.Errorf("dice: %w", err)
		}
		if err := c.do(ctx, replica.Command{Type: replica.CmdRollDice, Sides: sides}); err != nil {
			return err
		}
		v, err := c.node.State(ctx)
		if err == nil && v.Dice != nil {
			fmt.Fprintf(c.out, "%s rolled d%d: %d\n", v.Dice.Username, v.Dice.Sides, v.Dice.Result)
		}
		return nil

	case "save":
		if arg(1) == "" {
			return errUsage
		}
		return c.save(ctx, rest(1))

	case "load":
		if arg(1) == "" {
			return errUsage
		}
		return c.load(ctx, rest(1))

	case "narrate":
		v, err := c.node.State(ctx)
		if err != nil {
			return err
		}
		cur, _ := v.World.Current()
		if c.narrateTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.narrateTimeout)
			defer cancel()
		}
		fmt.Fprintln(c.out, c.narrator.Narrate(ctx, cur.Grid, cur.Tokens))
		return nil

	case "help":
		return errUsage
	}
	return fmt.Errorf("unknown command %q", f[0])
}

func (c *console) do(ctx context.Context, cmd replica.Command) error {
	_, err := c.node.Do(ctx, cmd)
	return err
}

func (c *console) save(ctx context.Context, path string) (err error) {
	doc, err := c.node.Export(ctx, c.now())
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return session.Encode(f, doc)
}

func (c *console) load(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := session.Decode(f)
	if err != nil {
		return err
	}
	return c.node.Load(ctx, w)
}

func (c *console) printState(v replica.View) {
	fmt.Fprintf(c.out, "id %s (%s), %s, %s\n", v.SelfID, v.Username, v.Role, v.Status)
	for _, l := range v.Links {
		fmt.Fprintf(c.out, "  link %s %s\n", l.ID, l.Direction)
	}
	for _, s := range v.World.Scenarios {
		mark := " "
		if s.ID == v.World.CurrentScenarioID {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s scenario %s %q: %d cells, %d tokens, hex %d\n", mark, s.ID, s.Name, len(s.Grid), len(s.Tokens), s.HexSize)
	}
	if cur, ok := v.World.Current(); ok {
		for i, t := range cur.Tokens {
			fmt.Fprintf(c.out, "  [%d] %s %s at %s visible=%t\n", i, t.ID, t.Name, t.Cell(), t.IsVisible)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(v.World.UserLocations)) {
		fmt.Fprintf(c.out, "  %s is in %s\n", name, v.World.UserLocations[name].ScenarioID)
	}
	if v.Dice != nil {
		fmt.Fprintf(c.out, "  dice: %s rolled d%d: %d\n", v.Dice.Username, v.Dice.Sides, v.Dice.Result)
	}
}

func parseCell(col, row string) (hex.Cell, error) {
	return hex.ParseKey(col + "," + row)
}
