package logic

// Vehicle runs one control cycle over the motion controller and the
// distance filter.
type Vehicle struct {
	motion *MotionController
	filter *DistanceFilter

	obstacle bool
	enables  int
	faulted  bool
	counts   EventCounts
}

// NewVehicle ties a motion controller to a distance filter.
func NewVehicle(motion *MotionController, filter *DistanceFilter) *Vehicle {
	return &Vehicle{motion: motion, filter: filter}
}

// Motion returns the motion controller.
func (v *Vehicle) Motion() *MotionController {
	return v.motion
}

// Filter returns the distance filter.
func (v *Vehicle) Filter() *DistanceFilter {
	return v.filter
}

// Tick advances the motion state machines, then polls for obstacles. Every
// sampled obstacle starts avoidance unless a maneuver is already running.
// OBSTACLE is reported when the maneuver starts and, during one, when the
// obstacle reappears after a clear reading.
func (v *Vehicle) Tick(now Millis) []Event {
	events := v.motion.Tick(now)

	if g := v.filter.Enables(); g != v.enables || !v.filter.AvoidanceEnabled() {
		v.enables = g
		v.obstacle = false
	}

	obstacle, sampled := v.filter.CheckObstacle(now)
	if sampled {
		switch {
		case obstacle && !v.motion.Avoiding():
			events = append(events, Event{Time: now, Type: EventObstacle, Distance: v.filter.LastCheckedDistance()})
			v.motion.BeginAvoidance()
			events = append(events, Event{Time: now, Type: EventAvoidanceStart})
		case obstacle && !v.obstacle:
			events = append(events, Event{Time: now, Type: EventObstacle, Distance: v.filter.LastCheckedDistance()})
		}
		v.obstacle = obstacle
	}

	if faulted := v.filter.Faulted(); faulted != v.faulted {
		v.faulted = faulted
		typ := EventSensorRecovered
		if faulted {
			typ = EventSensorFault
		}
		events = append(events, Event{Time: now, Type: typ, Distance: v.filter.LastValidDistance()})
	}
	v.motion.ReflectSensorHealth(v.faulted)

	for _, e := range events {
		v.counts.add(e)
	}
	return events
}

// Counts returns the number of each event type since startup.
func (v *Vehicle) Counts() EventCounts {
	return v.counts
}
