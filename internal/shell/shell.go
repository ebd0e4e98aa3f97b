// Package shell provides the interactive command loop over discovery and
// the snapshot store.
package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sigreer/diskmap/internal/devtree"
	"github.com/sigreer/diskmap/internal/identify"
	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/snapshot"
)

// Discoverer runs a full discovery pass
type Discoverer interface {
	Discover() (*inventory.Inventory, []devtree.Warning, error)
}

// Store persists an inventory between sessions
type Store interface {
	Save(inv *inventory.Inventory) error
	Load() (*inventory.Inventory, error)
}

type loggerSetter interface {
	SetLogger(logger *slog.Logger)
}

// Shell owns the inventory of one interactive session
type Shell struct {
	discoverer Discoverer
	store      Store
	logger     *slog.Logger
	out        io.Writer

	inv *inventory.Inventory
}

// New creates a shell writing to out. The session starts with an empty inventory.
func New(d Discoverer, store Store, out io.Writer, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		discoverer: d,
		store:      store,
		logger:     logger,
		out:        out,
		inv:        inventory.New(),
	}
}

// Inventory returns the current session inventory
func (s *Shell) Inventory() *inventory.Inventory {
	return s.inv
}

// Execute runs one command. It returns false once the session should end.
// Command failures are printed and never end the session.
func (s *Shell) Execute(cmd Command, args []string) bool {
	s.logger.Debug("executing command", "command", cmd.String(), "args", args)

	var err error
	switch cmd {
	case CmdDiscover:
		err = s.discover()
	case CmdSave:
		err = s.save()
	case CmdLoad:
		err = s.load()
	case CmdPrint:
		if len(args) == 1 && args[0] == "json" {
			err = identify.PrintInventoryJSON(s.out, s.inv)
		} else {
			err = identify.PrintInventory(s.out, s.inv)
		}
	case CmdIdentify:
		err = s.identify(args[0])
	case CmdHelp:
		s.printHelp()
	case CmdQuit:
		return false
	default:
		err = fmt.Errorf("unhandled command %s", cmd)
	}

	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return true
}

// ExecuteLine parses and runs one input line
func (s *Shell) ExecuteLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	cmd, args, err := ParseCommand(line)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return true
	}
	return s.Execute(cmd, args)
}

func (s *Shell) discover() error {
	inv, warnings, err := s.discoverer.Discover()
	if err != nil {
		return err
	}
	s.inv = inv
	// Unmatched serials are already logged one by one
	fmt.Fprintf(s.out, "Discovered %d controllers, %d enclosures, %d drives",
		len(inv.Controllers), len(inv.Enclosures), len(inv.DriveList()))
	if len(warnings) > 0 {
		fmt.Fprintf(s.out, " (%d unmatched serials)", len(warnings))
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *Shell) save() error {
	if err := s.store.Save(s.inv); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %d drives\n", len(s.inv.DriveList()))
	return nil
}

func (s *Shell) load() error {
	inv, err := s.store.Load()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return fmt.Errorf("nothing saved yet, run 'discover' then 'save'")
	}
	if err != nil {
		return err
	}
	s.inv = inv
	fmt.Fprintf(s.out, "Loaded %d drives\n", len(inv.DriveList()))
	return nil
}

func (s *Shell) identify(query string) error {
	result, err := identify.Lookup(s.inv, query)
	if err != nil {
		return err
	}
	identify.PrintTable(s.out, result)
	return nil
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
diskmap commands:
  discover          - Run sas2ircu and prtconf and replace the inventory
  save              - Save the inventory to the snapshot store
  load              - Replace the inventory with the saved snapshot
  print [json]      - Print controllers, enclosures and drives
  identify <query>  - Find a drive by serial, device, enc:slot or ctrl:enc:slot
  help              - Show this help
  quit              - Exit`)
}

// Run reads commands with readline until quit, EOF or an error. Output
// and log records go through readline so they don't garble the prompt.
func Run(d Discoverer, store Store, level slog.Leveler) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "diskmap> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	logger := slog.New(slog.NewTextHandler(rl.Stderr(), &slog.HandlerOptions{Level: level}))
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(logger)
	}
	s := New(d, store, rl.Stdout(), logger)
	s.printHelp()

	for {
		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		if !s.ExecuteLine(line) {
			return nil
		}
	}
}
