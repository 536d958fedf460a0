package command

import (
	"fmt"
	"log"
	"strings"

	"github.com/sweeney/bench-rover/internal/logic"
	"github.com/sweeney/bench-rover/internal/transport"
)

// HelpText is sent in response to "help".
var HelpText = []string{
	"Test-bench Car Control Commands:",
	"---------------------------",
	"Speed Control:",
	"  speed [value]: Set global speed (50-255)",
	"",
	"Movement Commands:",
	"  forward/f: Move forward at current speed",
	"  forward/f [seconds]: Move forward for specified seconds at current speed",
	"  forward/f [speed] [seconds]: Move forward at specific speed for specified seconds",
	"  backward/b: Move backward at current speed",
	"  backward/b [seconds]: Move backward for specified seconds at current speed",
	"  backward/b [speed] [seconds]: Move backward at specific speed for specified seconds",
	"  stop/s: Stop movement",
	"  turn X: Turn by X degrees (positive for right, negative for left)",
	"",
	"Sensor Commands:",
	"  distance: Report current distance from ultrasonic sensor",
	"  avoid on/off: Enable/disable obstacle avoidance",
	"  debug on/off: Enable/disable sensor debugging information",
	"",
	"Other Commands:",
	"  help: Show this help information",
	"  ping: Simple connectivity test",
	"  status: Show current system status (includes speed)",
}

const invalidSpeed = "Invalid speed value. Please specify a positive number."

// Dispatcher applies command lines to the motion controller and distance
// filter. It must only be called from the control loop.
type Dispatcher struct {
	motion *logic.MotionController
	filter *logic.DistanceFilter
	router *transport.Router
	links  []transport.Responder
}

// NewDispatcher creates a dispatcher. router, if set, is pointed at the
// requesting channel before each command so core messages reach it. links are
// listed by "status".
func NewDispatcher(motion *logic.MotionController, filter *logic.DistanceFilter, router *transport.Router, links ...transport.Responder) *Dispatcher {
	return &Dispatcher{motion: motion, filter: filter, router: router, links: links}
}

// Dispatch handles one command line from res.
func (d *Dispatcher) Dispatch(line string, res transport.Responder) Command {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}
	}
	if d.router != nil {
		d.router.Select(res)
	}

	reply := func(format string, args ...any) {
		msg := format
		if len(args) > 0 {
			msg = fmt.Sprintf(format, args...)
		}
		if err := res.Send(msg); err != nil {
			log.Printf("command: reply to %s: %v", res.Name(), err)
		}
	}

	reply("Command received: %s", line)

	cmd := Parse(line)
	switch cmd.Kind {
	case Help:
		for _, l := range HelpText {
			reply(l)
		}

	case Ping:
		reply("pong")

	case Status:
		reply("Connection: %s", res.Name())
		for _, l := range d.links {
			state := "Disconnected"
			if l.IsConnected() {
				state = "Connected"
			}
			reply("%s: %s", l.Name(), state)
		}
		reply("Current speed: %d", d.motion.Speed())
		reply("Obstacle avoidance: %s", enabled(d.filter.AvoidanceEnabled(), "Enabled", "Disabled"))
		reply("Debug mode: %s", enabled(d.filter.Debug(), "Enabled", "Disabled"))

	case Distance:
		reply("Current distance: %d cm", d.filter.ValidDistance())

	case Stop:
		d.motion.Stop()

	case Forward, Backward:
		d.move(cmd, reply)

	case Turn:
		d.motion.TurnByDegrees(cmd.Args[0])

	case Speed:
		if cmd.Args[0] <= 0 {
			reply(invalidSpeed)
			break
		}
		d.motion.SetSpeed(cmd.Args[0])

	case Avoid:
		d.filter.SetAvoidanceEnabled(cmd.On)
		reply("Obstacle avoidance %s", enabled(cmd.On, "enabled", "disabled"))

	case Debug:
		d.filter.SetDebug(cmd.On)
		reply("Debug mode %s", enabled(cmd.On, "enabled", "disabled"))

	default:
		reply("Unknown command. Type 'help' for available commands.")
	}
	return cmd
}

func (d *Dispatcher) move(cmd Command, reply func(string, ...any)) {
	fwd := cmd.Kind == Forward
	switch len(cmd.Args) {
	case 0:
		if fwd {
			d.motion.MoveForward(0)
		} else {
			d.motion.MoveBackward(0)
		}
	case 1:
		if fwd {
			d.motion.MoveForward(cmd.Args[0])
		} else {
			d.motion.MoveBackward(cmd.Args[0])
		}
	default:
		speed, seconds := cmd.Args[0], cmd.Args[1]
		if speed <= 0 {
			reply(invalidSpeed)
			return
		}
		if fwd {
			d.motion.MoveForwardWithSpeed(speed, seconds)
		} else {
			d.motion.MoveBackwardWithSpeed(speed, seconds)
		}
	}
}

func enabled(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
