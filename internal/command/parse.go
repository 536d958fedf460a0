// Package command parses operator command lines and applies them to the
// vehicle.
package command

import (
	"math"
	"strings"
)

// Kind is a recognised command.
type Kind int

const (
	Unknown Kind = iota
	Help
	Ping
	Status
	Distance
	Stop
	Forward
	Backward
	Turn
	Speed
	Avoid
	Debug
)

func (k Kind) String() string {
	switch k {
	case Help:
		return "help"
	case Ping:
		return "ping"
	case Status:
		return "status"
	case Distance:
		return "distance"
	case Stop:
		return "stop"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Turn:
		return "turn"
	case Speed:
		return "speed"
	case Avoid:
		return "avoid"
	case Debug:
		return "debug"
	}
	return "unknown"
}

// Command is a parsed command line.
type Command struct {
	Kind Kind
	// Args holds the numeric arguments in order. Forward and Backward carry
	// zero, one (seconds) or two (speed, seconds).
	Args []int
	// On is the flag for Avoid and Debug.
	On bool
}

var words = map[string]Kind{
	"help":     Help,
	"ping":     Ping,
	"status":   Status,
	"distance": Distance,
	"stop":     Stop,
	"s":        Stop,
	"forward":  Forward,
	"f":        Forward,
	"backward": Backward,
	"b":        Backward,
	"turn":     Turn,
	"speed":    Speed,
	"avoid":    Avoid,
	"debug":    Debug,
}

// Parse tokenises line case-insensitively. Bare words take no arguments;
// turn, speed, avoid and debug require one. Extra tokens are ignored.
func Parse(line string) Command {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}
	}
	kind, ok := words[fields[0]]
	if !ok {
		return Command{}
	}
	args := fields[1:]

	switch kind {
	case Help, Ping, Status, Distance, Stop:
		if len(args) > 0 {
			return Command{}
		}
		return Command{Kind: kind}

	case Forward, Backward:
		if len(args) > 2 {
			args = args[:2]
		}
		c := Command{Kind: kind}
		for _, a := range args {
			c.Args = append(c.Args, ParseInt(a))
		}
		return c

	case Turn, Speed:
		if len(args) == 0 {
			return Command{}
		}
		return Command{Kind: kind, Args: []int{ParseInt(args[0])}}

	case Avoid, Debug:
		if len(args) == 0 {
			return Command{}
		}
		return Command{Kind: kind, On: args[0] == "on"}
	}
	return Command{}
}

// ParseInt reads an optional sign and the leading decimal digits of s.
// Anything that does not start with a number is 0. Values saturate at the
// 32-bit range.
func ParseInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int64(s[i]-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32 + 1
		}
	}
	if neg {
		n = -n
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	if n < math.MinInt32 {
		n = math.MinInt32
	}
	return int(n)
}
