// Package command parses and executes control-channel text commands.
package command

import (
	"strconv"
	"strings"
)

// Kind identifies a parsed command.
type Kind int

const (
	NoOp Kind = iota
	ListDevices
	ChangeDevice
	Close
)

func (k Kind) String() string {
	switch k {
	case ListDevices:
		return "list"
	case ChangeDevice:
		return "change"
	case Close:
		return "close"
	default:
		return "noop"
	}
}

// Command is one parsed control message.
type Command struct {
	Kind  Kind
	Index int // logical device index for ChangeDevice
}

// Parse interprets a control message. Tokens are case-sensitive; anything
// that is not an exact command parses as NoOp.
func Parse(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}
	}

	switch fields[0] {
	case "!list":
		if len(fields) == 1 {
			return Command{Kind: ListDevices}
		}
	case "!close":
		if len(fields) == 1 {
			return Command{Kind: Close}
		}
	case "!change":
		if len(fields) == 2 && isDigits(fields[1]) {
			// Out of range for int still means "no such device".
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				n = 0
			}
			return Command{Kind: ChangeDevice, Index: n}
		}
	}
	return Command{}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
