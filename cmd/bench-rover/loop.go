package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/bench-rover/internal/command"
	"github.com/sweeney/bench-rover/internal/logic"
	"github.com/sweeney/bench-rover/internal/mqtt"
	"github.com/sweeney/bench-rover/internal/status"
	"github.com/sweeney/bench-rover/internal/transport"
)

// loopDeps is everything the control loop owns. Only runLoop's goroutine
// touches the vehicle, dispatcher and router.
type loopDeps struct {
	vehicle    *logic.Vehicle
	indicator  *logic.Indicator
	clock      logic.Clock
	dispatcher *command.Dispatcher
	router     *transport.Router
	publisher  mqtt.Publisher
	mqttState  func() status.MQTT // optional
	links      []transport.Responder
	tracker    *status.Tracker // optional
	heartbeat  time.Duration
	now        func() time.Time
}

// refresh copies the core state into the tracker for HTTP and heartbeat
// consumers.
func (d *loopDeps) refresh() {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(status.RoverFrom(d.vehicle, d.indicator), d.vehicle.Counts())

	links := make([]status.Link, len(d.links))
	for i, l := range d.links {
		links[i] = status.Link{Name: l.Name(), Connected: l.IsConnected()}
	}
	d.tracker.SetLinks(links)

	if d.mqttState != nil {
		d.tracker.SetMQTT(d.mqttState())
	}
}

func (d *loopDeps) systemEvent(name, reason string, retained bool) mqtt.SystemEvent {
	event := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     name,
		Reason:    reason,
		Retained:  retained,
	}
	if d.tracker != nil {
		d.refresh()
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), name, reason)
	}
	return event
}

// handle runs one command. One-shot requests (those with Done set) leave the
// router pointing where it was, so tick messages keep going to the last
// interactive channel.
func (d *loopDeps) handle(req transport.Request) {
	var prev transport.Responder
	if req.Done != nil {
		prev = d.router.Select(req.From)
	}

	cmd := d.dispatcher.Dispatch(req.Line, req.From)
	log.Printf("command: %q from %s (%s)", req.Line, req.From.Name(), cmd.Kind)

	if req.Done != nil {
		d.router.Select(prev)
		close(req.Done)
	}
	d.refresh()
}

func (d *loopDeps) tick() {
	events := d.vehicle.Tick(d.clock.Now())

	for _, event := range events {
		log.Printf("event: %s (distance=%d)", event.Type, event.Distance)
		if err := d.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}
	d.refresh()
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func runLoop(d loopDeps, tick <-chan time.Time, requests <-chan transport.Request, sig <-chan os.Signal) error {
	lastHeartbeat := d.now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			// Leave the car parked.
			d.vehicle.Motion().Stop()

			event := d.systemEvent("SHUTDOWN", signalName(s), true)
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case req := <-requests:
			d.handle(req)

		case <-tick:
			d.tick()

			if d.heartbeat <= 0 {
				continue
			}
			if t := d.now(); t.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = t
				counts := d.vehicle.Counts()
				log.Printf("heartbeat: timed_moves=%d avoidances=%d obstacles=%d sensor_faults=%d",
					counts.TimedMoves, counts.Avoidances, counts.Obstacles, counts.SensorFaults)
				if err := d.publisher.PublishSystem(d.systemEvent("HEARTBEAT", "", false)); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}
