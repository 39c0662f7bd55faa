/*
 * DECtape controller core - tape image geometry.
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

// Package dtimage is the tape image accessor: it holds the in-memory
// 18-bit word image of one reel, transcodes it to and from the on-disk
// 12-bit/16-bit/18-bit block encodings at attach/detach time, and
// answers header/checksum/data word queries for a (block, frame index)
// pair. It knows nothing about motion, scheduling, or controller
// registers — those live in package dectape.
package dtimage

// Format selects the on-disk block encoding used at attach time. The
// in-memory image is always native 18-bit words regardless of format.
type Format int

const (
	FormatNative18 Format = iota // 32-bit LE on disk, 18 bits used.
	FormatPacked16               // 16-bit LE on disk, zero-extended.
	FormatPacked12               // 16-bit LE on disk, 12 bits used, 2-of-3 packed.
)

const (
	// Mask18 keeps a value to 18 bits, the native DECtape word width.
	Mask18 uint32 = 0o777777

	// headerWords and trailerWords are the fixed word counts either side
	// of the data zone.
	headerWords  = 5
	trailerWords = 5

	// reverseEndZoneLines is the unrecorded runout at each reel end,
	// independent of format: it is a physical property of the reel,
	// not of the block encoding.
	reverseEndZoneLines = 36000
)

// Geometry bundles every constant derived from a Format.
type Geometry struct {
	Format              Format
	BlockSizeWords      int // Native words per block's data zone.
	TapeSizeBlocks      int // Blocks on the reel.
	WordSizeLines       int // Tape lines per word.
	HeaderLines         int // Lines in the header.
	TrailerLines        int // Lines in the trailer.
	LinesPerBlock       int // Header + data + trailer.
	ReverseEndZoneLines int // Lines of reverse end zone runout.
	ForwardEndZoneLine  int // Line at which the forward end zone begins.
	Margin              int // Lines of forward end-zone runout past ForwardEndZoneLine.
}

// GeometryFor returns the derived geometry for a format.
//
// The header/trailer layout is given in word counts (5 reserved/named
// words each side) but only the native format's line count (30) is
// given directly. We derive HeaderLines/TrailerLines as
// headerWords/trailerWords * WordSizeLines so the 5-word header/trailer
// frame stays structurally identical across formats; this reproduces the
// native case's literal 30 lines and extends consistently to 12-bit
// tapes, whose narrower 4-line word makes the header/trailer span 20
// lines instead. See DESIGN.md for this resolved open question.
func GeometryFor(f Format) Geometry {
	var g Geometry
	g.Format = f
	g.ReverseEndZoneLines = reverseEndZoneLines

	switch f {
	case FormatPacked12:
		g.BlockSizeWords = 86
		g.TapeSizeBlocks = 1474
		g.WordSizeLines = 4
	default: // FormatNative18, FormatPacked16
		g.BlockSizeWords = 256
		g.TapeSizeBlocks = 578
		g.WordSizeLines = 6
	}

	g.HeaderLines = headerWords * g.WordSizeLines
	g.TrailerLines = trailerWords * g.WordSizeLines
	g.LinesPerBlock = g.HeaderLines + g.BlockSizeWords*g.WordSizeLines + g.TrailerLines
	g.ForwardEndZoneLine = g.ReverseEndZoneLines + g.TapeSizeBlocks*g.LinesPerBlock
	// The forward runout is the same length as the reverse one; past it
	// the tape physically leaves the reel.
	g.Margin = g.ReverseEndZoneLines

	return g
}

// CapacityWords is tape_capacity_words = tape_size_blocks * block_size_words.
func (g Geometry) CapacityWords() int {
	return g.TapeSizeBlocks * g.BlockSizeWords
}

// OnDiskBytes is the byte size of a complete image file in format f,
// used as the autosize signature at attach time.
func OnDiskBytes(f Format) int64 {
	g := GeometryFor(f)
	words := g.TapeSizeBlocks * (headerWords + g.BlockSizeWords + trailerWords)
	switch f {
	case FormatPacked16:
		return int64(words) * 2
	case FormatPacked12:
		// Three 16-bit on-disk words per two native words.
		return int64(words) * 3
	default:
		return int64(words) * 4
	}
}

// DetectFormat infers the on-disk encoding from the image file's size,
// defaulting to native 18-bit when no packed signature matches.
func DetectFormat(size int64) Format {
	switch size {
	case OnDiskBytes(FormatPacked16):
		return FormatPacked16
	case OnDiskBytes(FormatPacked12):
		return FormatPacked12
	default:
		return FormatNative18
	}
}
