package shell

import (
	"fmt"
	"strings"
)

// Command is one of the fixed set of shell commands
type Command int

const (
	CmdDiscover Command = iota
	CmdSave
	CmdLoad
	CmdPrint
	CmdIdentify
	CmdHelp
	CmdQuit
)

var commandNames = map[Command]string{
	CmdDiscover: "discover",
	CmdSave:     "save",
	CmdLoad:     "load",
	CmdPrint:    "print",
	CmdIdentify: "identify",
	CmdHelp:     "help",
	CmdQuit:     "quit",
}

// aliases maps every accepted spelling to its command
var aliases = map[string]Command{
	"discover": CmdDiscover,
	"d":        CmdDiscover,
	"save":     CmdSave,
	"load":     CmdLoad,
	"print":    CmdPrint,
	"show":     CmdPrint,
	"p":        CmdPrint,
	"identify": CmdIdentify,
	"id":       CmdIdentify,
	"i":        CmdIdentify,
	"help":     CmdHelp,
	"?":        CmdHelp,
	"quit":     CmdQuit,
	"exit":     CmdQuit,
	"q":        CmdQuit,
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// ParseCommand splits a line into a command and its arguments. Blank lines
// and unknown commands are errors.
func ParseCommand(line string) (Command, []string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return 0, nil, fmt.Errorf("empty command")
	}
	cmd, ok := aliases[strings.ToLower(parts[0])]
	if !ok {
		return 0, nil, fmt.Errorf("unknown command: %s (type 'help' for commands)", parts[0])
	}
	args := parts[1:]

	switch cmd {
	case CmdIdentify:
		if len(args) != 1 {
			return 0, nil, fmt.Errorf("usage: identify <serial|device|enc:slot|ctrl:enc:slot>")
		}
	case CmdPrint:
		if len(args) > 1 || (len(args) == 1 && args[0] != "json") {
			return 0, nil, fmt.Errorf("usage: print [json]")
		}
	default:
		if len(args) > 0 {
			return 0, nil, fmt.Errorf("%s takes no arguments", cmd)
		}
	}
	return cmd, args, nil
}
