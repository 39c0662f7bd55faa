package event

/*
 * DECtape controller core - Event scheduler
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	D "github.com/rcornwell/dectape/emu/device"
)

type Callback = func(iarg int)

type Event struct {
	time int      // Number of ticks to event, relative to previous entry.
	dev  D.Device // Device event is registered to.
	cb   Callback // Function to callback.
	iarg int      // Integer argument.
	prev *Event
	next *Event
}

type EventList struct {
	head *Event
	tail *Event
}

var el EventList

// now is the simulated clock. It only advances inside Advance, never by
// wall-clock time, so snapshot/restore of a run only needs to save this
// one integer plus the relative event list.
var now int

// Now returns the current simulated tick count. Drives use this, minus
// their own last_update_time, to lazily integrate position without
// needing a per-tick callback.
func Now() int {
	return now
}

// AddEvent schedules cb to run after time ticks with iarg as its argument.
// If time is 0 the callback runs immediately, synchronously.
func AddEvent(dev D.Device, cb Callback, time int, iarg int) bool {
	if time == 0 {
		cb(iarg)
		return false
	}

	ev := &Event{dev: dev, cb: cb, time: time, iarg: iarg, next: nil, prev: nil}

	evptr := el.head
	// If empty put on head.
	if evptr == nil {
		el.head = ev
		el.tail = ev
		return false
	}

	// Scan for place to install it.
	for evptr != nil {
		// Event before next event.
		if ev.time <= evptr.time {
			// Remove current time from next time.
			evptr.time -= ev.time
			ev.prev = evptr.prev
			ev.next = evptr
			evptr.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				el.head = ev
			}
			return false
		}
		// Make new event relative to head of list.
		ev.time -= evptr.time
		evptr = evptr.next
	}

	// Get here, put it on tail of list.
	ev.prev = el.tail
	el.tail.next = ev
	el.tail = ev
	return false
}

// CancelEvent removes the pending event for dev with the given iarg, if
// any. A drive never has more than one pending event at a time, so this
// always removes at most one entry.
func CancelEvent(dev D.Device, iarg int) {
	evptr := el.head

	for evptr != nil {
		if evptr.dev == dev && evptr.iarg == iarg {
			nxt := evptr.next
			if nxt != nil {
				nxt.time += evptr.time
				nxt.prev = evptr.prev
			} else {
				el.tail = evptr.prev
			}

			if evptr.prev != nil {
				evptr.prev.next = evptr.next
			} else {
				el.head = evptr.next
			}
			return
		}
		evptr = evptr.next
	}
}

// Pending reports whether dev has a scheduled event outstanding,
// regardless of iarg.
func Pending(dev D.Device) bool {
	for evptr := el.head; evptr != nil; evptr = evptr.next {
		if evptr.dev == dev {
			return true
		}
	}
	return false
}

// Advance moves the simulated clock forward by t ticks, firing every
// callback whose deadline falls within that window in strict time
// order. The firing node is unlinked and the clock stepped to its
// deadline before the callback runs, so a callback is free to cancel
// or reschedule its own device's event, and Now() inside a callback is
// the event's exact due time. Whatever window remains is carried onto
// the next entry. Ties between independently scheduled drives fire the
// most recently inserted event first (AddEvent places a new event ahead
// of any with the same deadline); independent drives interleave this way
// without actual concurrency.
func Advance(t int) {
	for el.head != nil && el.head.time <= t {
		evptr := el.head
		t -= evptr.time
		now += evptr.time
		el.head = evptr.next
		if el.head != nil {
			el.head.prev = nil
		} else {
			el.tail = nil
		}
		evptr.cb(evptr.iarg)
	}
	now += t
	if el.head != nil {
		el.head.time -= t
	}
}

// Reset clears all pending events and zeroes the simulated clock. Used
// by the harness for a cold reset.
func Reset() {
	el.head = nil
	el.tail = nil
	now = 0
}
