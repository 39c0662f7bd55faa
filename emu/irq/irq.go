/*
 * DECtape controller core - interrupt aggregator.
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

// Package irq is the interrupt aggregator. The channel subsystem this
// core was adapted from keeps a single package-level IrqPending flag set
// by any device and cleared by the channel poll loop; here the same
// latch-and-poll shape is kept but owned by the controller value instead
// of living at package scope, since nothing below the host CPU needs the
// host's channel-program machinery.
package irq

// Line is a single level-sensitive interrupt-request latch. A controller
// holds one Line and raises it whenever DTF, BEF, or ERF become set.
type Line struct {
	pending bool
}

// Raise asserts the interrupt request.
func (l *Line) Raise() {
	l.pending = true
}

// Pending reports whether a request is outstanding.
func (l *Line) Pending() bool {
	return l.pending
}

// Acknowledge clears the request, as the host does once it has noticed it.
func (l *Line) Acknowledge() {
	l.pending = false
}
