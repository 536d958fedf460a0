// Command bench-rover drives the test-bench car: it takes commands over serial,
// Bluetooth, MQTT and HTTP, avoids obstacles with the ultrasonic sensor, and
// publishes control events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/bench-rover/internal/command"
	"github.com/sweeney/bench-rover/internal/config"
	"github.com/sweeney/bench-rover/internal/gpio"
	"github.com/sweeney/bench-rover/internal/logic"
	"github.com/sweeney/bench-rover/internal/mqtt"
	"github.com/sweeney/bench-rover/internal/status"
	"github.com/sweeney/bench-rover/internal/transport"
	"github.com/sweeney/bench-rover/internal/web"
)

type options struct {
	tick        time.Duration
	heartbeat   time.Duration
	broker      string
	clientID    string
	httpAddr    string
	serialPath  string
	btPath      string
	baud        int
	turnMsPer90 int
	avoid       bool
	tuningPath  string
	chip        string
	pwmChip     string
	pins        gpio.Pins
	measure     bool
}

func main() {
	pins := gpio.DefaultPins()
	var opts options
	flag.DurationVar(&opts.tick, "tick", 50*time.Millisecond, "Control loop interval")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&opts.clientID, "client-id", "", "MQTT client ID (default bench-rover-<random>)")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.serialPath, "serial", "/dev/ttyGS0", "USB serial console device (empty to disable)")
	flag.StringVar(&opts.btPath, "bluetooth", "/dev/rfcomm0", "Bluetooth RFCOMM device (empty to disable)")
	flag.IntVar(&opts.baud, "baud", transport.DefaultBaudRate, "Serial baud rate")
	flag.IntVar(&opts.turnMsPer90, "turn-ms-per-90", 0, fmt.Sprintf("Rotation time for 90 degrees (0 uses the tuning file or %d; the bench chassis wants %d)", logic.TurnMsPer90Bluetooth, logic.TurnMsPer90Bench))
	flag.BoolVar(&opts.avoid, "avoid", true, "Start with obstacle avoidance enabled")
	flag.StringVar(&opts.tuningPath, "config", "", "JSON tuning overrides")
	flag.StringVar(&opts.chip, "chip", gpio.DefaultChip, "GPIO chip")
	flag.StringVar(&opts.pwmChip, "pwm-chip", gpio.DefaultPWMChip, "sysfs PWM chip for motor power")
	flag.IntVar(&pins.Trig, "pin-trig", pins.Trig, "BCM pin for the ultrasonic trigger")
	flag.IntVar(&pins.Echo, "pin-echo", pins.Echo, "BCM pin for the ultrasonic echo")
	flag.BoolVar(&opts.measure, "measure", false, "Print one filtered distance reading and exit")

	flag.Parse()
	opts.pins = pins

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// tuning resolves the core configuration from defaults, the tuning file and
// flags, in that order.
func tuning(opts options) (logic.MotionConfig, logic.FilterConfig, logic.IndicatorConfig, error) {
	motionCfg := logic.DefaultMotionConfig()
	filterCfg := logic.DefaultFilterConfig()
	indCfg := logic.DefaultIndicatorConfig()

	if opts.tuningPath != "" {
		tc, err := config.LoadTuningConfig(opts.tuningPath)
		if err != nil {
			return motionCfg, filterCfg, indCfg, fmt.Errorf("load tuning: %w", err)
		}
		if motionCfg, err = tc.Motion(motionCfg); err != nil {
			return motionCfg, filterCfg, indCfg, fmt.Errorf("tuning: %w", err)
		}
		if filterCfg, err = tc.Filter(filterCfg); err != nil {
			return motionCfg, filterCfg, indCfg, fmt.Errorf("tuning: %w", err)
		}
		indCfg = tc.Indicator(indCfg)
	}
	if opts.turnMsPer90 > 0 {
		motionCfg.TurnMsPer90 = opts.turnMsPer90
	}
	return motionCfg, filterCfg, indCfg, nil
}

// runner is a command channel with a read loop.
type runner interface {
	transport.Responder
	Run(ctx context.Context, out chan<- transport.Request) error
}

func run(opts options) error {
	motionCfg, filterCfg, indCfg, err := tuning(opts)
	if err != nil {
		return err
	}

	// Initialize GPIO
	ranger, err := gpio.NewRealRanger(opts.chip, opts.pins.Trig, opts.pins.Echo)
	if err != nil {
		return fmt.Errorf("init ranger: %w", err)
	}
	defer ranger.Close()

	// Measure mode
	if opts.measure {
		filter := logic.NewDistanceFilter(ranger, time.Sleep, nil, filterCfg)
		fmt.Printf("Distance: %d cm\n", filter.ValidDistance())
		return nil
	}

	motor, err := gpio.NewRealMotor(opts.chip, opts.pins, opts.pwmChip)
	if err != nil {
		return fmt.Errorf("init motor: %w", err)
	}
	defer motor.Close()

	linkLED, err := gpio.NewRealLight(opts.chip, "link-led", opts.pins.LinkLED)
	if err != nil {
		return fmt.Errorf("init link led: %w", err)
	}
	defer linkLED.Close()

	movementLED, err := gpio.NewRealLight(opts.chip, "movement-led", opts.pins.MovementLED)
	if err != nil {
		return fmt.Errorf("init movement led: %w", err)
	}
	defer movementLED.Close()

	// Command channels
	var runners []runner
	var linkStatus logic.LinkStatus
	portOpts := transport.PortOptions{BaudRate: opts.baud}

	if opts.serialPath != "" {
		port, err := transport.OpenPort(opts.serialPath, portOpts)
		if err != nil {
			return fmt.Errorf("init serial: %w", err)
		}
		ch := transport.NewSerialChannel("Serial", port)
		defer ch.Close()
		runners = append(runners, ch)
		linkStatus = ch
	}
	if opts.btPath != "" {
		port, err := transport.OpenPort(opts.btPath, portOpts)
		if err != nil {
			return fmt.Errorf("init bluetooth: %w", err)
		}
		ch := transport.NewBluetoothChannel(port, transport.DefaultBluetoothTimeout)
		defer ch.Close()
		runners = append(runners, ch)
		// The link light follows the Bluetooth peer when there is one.
		linkStatus = ch
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{Broker: opts.broker, ClientID: opts.clientID})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()
	runners = append(runners, mqtt.NewCommandChannel(publisher))

	links := make([]transport.Responder, len(runners))
	for i, r := range runners {
		links[i] = r
	}

	// Control core
	router := transport.NewRouter(nil)
	clock := logic.NewSystemClock()
	indicator := logic.NewIndicator(linkLED, movementLED, linkStatus, indCfg)
	motion := logic.NewMotionController(motor, indicator, clock, time.Sleep, router, motionCfg)
	filter := logic.NewDistanceFilter(ranger, time.Sleep, router, filterCfg)
	filter.SetAvoidanceEnabled(opts.avoid)
	vehicle := logic.NewVehicle(motion, filter)
	dispatcher := command.NewDispatcher(motion, filter, router, links...)

	filter.Warmup()
	router.Report("Test-bench car initialized and ready")

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(uuid.NewString(), time.Now(), status.Config{
		TickMs:      opts.tick.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		TurnMsPer90: int64(motionCfg.TurnMsPer90),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
		Serial:      opts.serialPath,
		Bluetooth:   opts.btPath,
	})

	deps := loopDeps{
		vehicle:    vehicle,
		indicator:  indicator,
		clock:      clock,
		dispatcher: dispatcher,
		router:     router,
		publisher:  publisher,
		mqttState:  publisherState(publisher),
		links:      links,
		tracker:    tracker,
		heartbeat:  opts.heartbeat,
		now:        time.Now,
	}
	deps.refresh()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := make(chan transport.Request, 16)
	for _, r := range runners {
		go func(r runner) {
			if err := r.Run(ctx, requests); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s: %v", r.Name(), err)
			}
		}(r)
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, requests)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: tick=%v broker=%s heartbeat=%v turn=%dms/90 avoid=%v",
		opts.tick, opts.broker, opts.heartbeat, motionCfg.TurnMsPer90, opts.avoid)

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(deps, ticker.C, requests, sigCh)
}

func publisherState(p *mqtt.RealPublisher) func() status.MQTT {
	return func() status.MQTT {
		queued, dropped, reconnects := p.Stats()
		return status.MQTT{
			Connected:  p.IsConnected(),
			Queued:     queued,
			Dropped:    dropped,
			Reconnects: reconnects,
		}
	}
}
