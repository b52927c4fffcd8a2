package capture

import "fmt"

// Command is one remote control action received on the command channel.
type Command byte

const (
	// CmdStop ends the active session.
	CmdStop Command = 0x00
	// CmdStart begins a new session, resetting the sequence counter.
	CmdStart Command = 0x01
	// CmdMark raises the one-shot event marker.
	CmdMark Command = 0x02
)

func (c Command) String() string {
	switch c {
	case CmdStop:
		return "stop"
	case CmdStart:
		return "start"
	case CmdMark:
		return "mark"
	default:
		return fmt.Sprintf("0x%02X", byte(c))
	}
}

// ParseCommand validates a raw command byte. Unknown values are rejected;
// the caller logs and ignores them.
func ParseCommand(b byte) (Command, error) {
	switch cmd := Command(b); cmd {
	case CmdStop, CmdStart, CmdMark:
		return cmd, nil
	default:
		return cmd, fmt.Errorf("capture: unknown command 0x%02X", b)
	}
}

// Apply dispatches a command against the controller. It reports whether
// the command changed state (a stop while idle or a duplicate marker does
// not). Start always begins a fresh session, even while recording, so a
// remote can restart session bookkeeping without an explicit stop.
func (c *Controller) Apply(cmd Command) bool {
	switch cmd {
	case CmdStop:
		return c.Stop()
	case CmdStart:
		c.Start()
		return true
	case CmdMark:
		return c.Mark()
	default:
		return false
	}
}
