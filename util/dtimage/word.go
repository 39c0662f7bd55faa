/*
 * DECtape controller core - word-level transforms.
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

package dtimage

// linesPerWord is the line count a word is split across when direction
// reverses; it only ever takes the native 6-line value since the
// complement-obverse transform only applies to native-width words held
// in memory.
const linesPerWord = 6

// ComplementObverse inverts every bit of word and reverses the order of
// its six 3-bit lines. It is its own inverse: applying it twice returns
// the original word.
func ComplementObverse(word uint32) uint32 {
	inverted := (^word) & Mask18

	var out uint32
	for i := range linesPerWord {
		line := (inverted >> (3 * i)) & 0o7
		out |= line << (3 * (linesPerWord - 1 - i))
	}
	return out
}

// Checksum computes the DECtape 1's-complement block checksum: each
// data word is added with end-around carry into an accumulator seeded
// to all ones, and the final accumulator is bit-complemented.
func Checksum(words []uint32) uint32 {
	var acc uint32 = Mask18
	for _, w := range words {
		acc += w & Mask18
		if acc > Mask18 {
			acc = (acc & Mask18) + 1 // end-around carry
		}
	}
	return (^acc) & Mask18
}
