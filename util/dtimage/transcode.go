/*
 * DECtape controller core - on-disk block encoding transcoders.
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

import (
	"encoding/binary"
	"errors"
)

var errOddPackedWords = errors.New("dtimage: packed-12 on-disk word count not a multiple of 3")

// decodeNative18 reads one native word per 4 on-disk bytes, little-endian,
// keeping only the low 18 bits (the "18b/36b native" on-disk format).
func decodeNative18(raw []byte, n int) []uint32 {
	words := make([]uint32, n)
	for i := range words {
		off := i * 4
		if off+4 > len(raw) {
			break
		}
		words[i] = binary.LittleEndian.Uint32(raw[off:off+4]) & Mask18
	}
	return words
}

// encodeNative18 is the inverse of decodeNative18.
func encodeNative18(words []uint32) []byte {
	raw := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], w&Mask18)
	}
	return raw
}

// decodePacked16 reads one native word per 2 on-disk bytes, zero-extended
// to 18 bits (the "16b" on-disk format).
func decodePacked16(raw []byte, n int) []uint32 {
	words := make([]uint32, n)
	for i := range words {
		off := i * 2
		if off+2 > len(raw) {
			break
		}
		words[i] = uint32(binary.LittleEndian.Uint16(raw[off : off+2]))
	}
	return words
}

// encodePacked16 truncates each native word to its low 16 bits; a word
// using bits 16/17 cannot round-trip through this format, matching the
// format's physical limitation.
func encodePacked16(words []uint32) []byte {
	raw := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(raw[i*2:i*2+2], uint16(w&0xffff))
	}
	return raw
}

// decodePacked12 unpacks three 12-bit on-disk words into two native
// 18-bit words:
//
//	native0 = (A<<6 | B>>6)
//	native1 = (B&077)<<12 | C
func decodePacked12(raw []byte, nativeWords int) ([]uint32, error) {
	onDisk := (nativeWords * 3) / 2
	if (nativeWords*3)%2 != 0 {
		return nil, errOddPackedWords
	}

	disk := make([]uint32, onDisk)
	for i := range disk {
		off := i * 2
		if off+2 > len(raw) {
			break
		}
		disk[i] = uint32(binary.LittleEndian.Uint16(raw[off:off+2])) & 0xfff
	}

	words := make([]uint32, nativeWords)
	for i := 0; i+2 <= nativeWords && (i/2)*3+2 < len(disk); i += 2 {
		a := disk[(i/2)*3]
		b := disk[(i/2)*3+1]
		c := disk[(i/2)*3+2]
		words[i] = (a << 6) | (b >> 6)
		words[i+1] = ((b & 0o77) << 12) | c
	}
	return words, nil
}

// encodePacked12 is the inverse of decodePacked12.
func encodePacked12(words []uint32) ([]byte, error) {
	if len(words)%2 != 0 {
		return nil, errOddPackedWords
	}

	onDisk := make([]uint32, 0, (len(words)*3)/2)
	for i := 0; i+2 <= len(words); i += 2 {
		n0 := words[i]
		n1 := words[i+1]
		a := (n0 >> 6) & 0xfff
		bTop := n0 & 0o77
		bBottom := (n1 >> 12) & 0o77
		b := (bTop << 6) | bBottom
		c := n1 & 0xfff
		onDisk = append(onDisk, a, b, c)
	}

	raw := make([]byte, len(onDisk)*2)
	for i, w := range onDisk {
		binary.LittleEndian.PutUint16(raw[i*2:i*2+2], uint16(w))
	}
	return raw, nil
}
