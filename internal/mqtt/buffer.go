package mqtt

import "log"

// pending is a serialized message waiting for the broker to come back.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO of messages queued while disconnected.
// When full, the oldest message is dropped.
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	buf     []pending
	head    int // next write position
	count   int
	dropped int // total dropped since creation

	warned bool // overflow logged since last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{buf: make([]pending, capacity)}
}

func (o *outbox) push(msg pending) {
	capacity := len(o.buf)
	if o.count == capacity {
		if !o.warned {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", capacity)
			o.warned = true
		}
		o.dropped++
		// head already points at the oldest entry
		o.buf[o.head] = msg
		o.head = (o.head + 1) % capacity
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % capacity
	o.count++
}

// drain returns the queued messages oldest first and empties the outbox.
func (o *outbox) drain() []pending {
	if o.count == 0 {
		return nil
	}

	capacity := len(o.buf)
	out := make([]pending, o.count)
	start := (o.head - o.count + capacity) % capacity
	for i := range out {
		out[i] = o.buf[(start+i)%capacity]
		o.buf[(start+i)%capacity] = pending{}
	}

	o.count = 0
	o.head = 0
	o.warned = false
	return out
}

func (o *outbox) len() int {
	return o.count
}
