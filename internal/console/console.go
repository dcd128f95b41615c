// Package console is an interactive shell for driving a simulated rig:
// it injects button edges and mode switch positions and prints the state.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abiosoft/ishell/v2"

	"github.com/sweeney/crossing-rig/internal/gpio"
	"github.com/sweeney/crossing-rig/internal/logic"
)

// ErrUnknownCommand is returned by Exec for names it does not handle.
var ErrUnknownCommand = errors.New("unknown command")

type command struct {
	name string
	help string
	run  func(c *Console, args []string) (string, error)
}

var commands = []command{
	{"toggle", "toggle: press the on/off button", func(c *Console, _ []string) (string, error) {
		return c.press(logic.ChannelOnOff)
	}},
	{"rotate", "rotate: press the rotate button", func(c *Console, _ []string) (string, error) {
		return c.press(logic.ChannelRotate)
	}},
	{"emergency", "emergency: press the emergency stop", func(c *Console, _ []string) (string, error) {
		return c.press(logic.ChannelEmergency)
	}},
	{"mode", "mode <0|1|2|none>: set the mode switch (toddler, kids, action)", (*Console).setMode},
	{"state", "state: print the rig state", func(c *Console, _ []string) (string, error) {
		return FormatState(c.snapshot()), nil
	}},
}

// Console routes commands to simulated inputs.
type Console struct {
	inputs   *gpio.FakeInputs
	snapshot func() logic.Snapshot
	now      func() time.Time
}

// New creates a Console that fires edges on inputs and reads state from
// snapshot.
func New(inputs *gpio.FakeInputs, snapshot func() logic.Snapshot) *Console {
	return &Console{inputs: inputs, snapshot: snapshot, now: time.Now}
}

// Exec runs one command and returns its output.
func (c *Console) Exec(name string, args []string) (string, error) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd.run(c, args)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

func (c *Console) press(ch logic.Channel) (string, error) {
	if !c.inputs.Fire(ch, c.now()) {
		return "", fmt.Errorf("%v: inputs disabled", ch)
	}
	return FormatState(c.snapshot()), nil
}

func (c *Console) setMode(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: mode <0|1|2|none>")
	}
	switch args[0] {
	case "none":
		c.inputs.SetMode(-1)
		return "mode switch: none", nil
	case "0", "1", "2":
		m := logic.Mode(args[0][0] - '0')
		c.inputs.SetMode(m)
		return fmt.Sprintf("mode switch: %v", m), nil
	}
	return "", fmt.Errorf("invalid mode %q", args[0])
}

// FormatState renders a snapshot as a single line.
func FormatState(s logic.Snapshot) string {
	mode := s.Mode
	if mode == "" {
		mode = "-"
	}
	return fmt.Sprintf("phase=%s mode=%s speed=%dms target=%dms walk=%d",
		s.Phase(), mode, uint8(s.Current), uint8(s.Target), s.WalkIndex)
}

// Run starts the interactive shell and blocks until the user exits or ctx
// is done.
func (c *Console) Run(ctx context.Context) error {
	shell := ishell.New()
	shell.Println("crossing rig simulator, type help for commands")
	for _, cmd := range commands {
		cmd := cmd
		shell.AddCmd(&ishell.Cmd{
			Name: cmd.name,
			Help: cmd.help,
			Func: func(ic *ishell.Context) {
				out, err := c.Exec(cmd.name, ic.Args)
				if err != nil {
					ic.Err(err)
					return
				}
				ic.Println(out)
			},
		})
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shell.Close()
		case <-done:
		}
	}()

	shell.Run()
	return ctx.Err()
}
