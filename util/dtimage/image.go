/*
 * DECtape controller core - in-memory tape image and persistence.
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
	"errors"
	"os"
)

var (
	errNotAttached  = errors.New("dtimage: not attached")
	errWriteProtect = errors.New("dtimage: image is write protected")
	errBlockRange   = errors.New("dtimage: block number out of range")
)

// Image is the in-memory 18-bit word image of one reel. It is always
// native 18-bit regardless of the on-disk Format it was attached from;
// Detach re-transcodes back to that same format on the way out. Image
// knows block numbers, header/trailer words, and checksums, but nothing
// about motion, timing, or controller registers.
type Image struct {
	geometry Geometry
	fileName string
	file     *os.File
	readOnly bool

	words []uint32 // Native 18-bit words, header..trailer per block, back to back.
	mark  []uint32 // HighWaterMark per block: furthest data word ever written.
}

// Attached reports whether a file is currently attached.
func (img *Image) Attached() bool {
	return img.file != nil
}

// FileName returns the path of the attached file, or "" if not attached.
func (img *Image) FileName() string {
	return img.fileName
}

// ReadOnly reports whether writes to the image are rejected.
func (img *Image) ReadOnly() bool {
	return img.readOnly
}

// SetReadOnly sets the write-protect switch that the Set* writers and
// Detach's write-back check. The file's open mode, chosen at Attach, is
// not changed.
func (img *Image) SetReadOnly(ro bool) {
	img.readOnly = ro
}

// Geometry returns the derived geometry of the attached image.
func (img *Image) Geometry() Geometry {
	return img.geometry
}

// Attach loads fileName as a tape image of the given format, write
// protected unless ring is true. The whole image is read into memory up
// front and transcoded to native 18-bit words; Detach writes it back out
// in the same on-disk format.
func (img *Image) Attach(fileName string, format Format, ring bool) error {
	geom := GeometryFor(format)

	var flag int
	if ring {
		flag = os.O_RDWR
	} else {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(fileName, flag, 0o644)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(fileName)
	if err != nil {
		f.Close()
		return err
	}

	nativeWords := geom.TapeSizeBlocks * (geom.HeaderLines/geom.WordSizeLines +
		geom.BlockSizeWords + geom.TrailerLines/geom.WordSizeLines)

	var words []uint32
	switch format {
	case FormatPacked16:
		words = decodePacked16(raw, nativeWords)
	case FormatPacked12:
		words, err = decodePacked12(raw, nativeWords)
		if err != nil {
			f.Close()
			return err
		}
	default:
		words = decodeNative18(raw, nativeWords)
	}
	if len(words) < nativeWords {
		padded := make([]uint32, nativeWords)
		copy(padded, words)
		words = padded
	}

	img.geometry = geom
	img.fileName = fileName
	img.file = f
	img.readOnly = !ring
	img.words = words
	img.mark = make([]uint32, geom.TapeSizeBlocks)

	return nil
}

// written reports whether any block's high-water mark is nonzero, the
// detach-time test for whether the image was ever written.
func (img *Image) written() bool {
	for _, m := range img.mark {
		if m != 0 {
			return true
		}
	}
	return false
}

// Detach transcodes the image back to its on-disk format and closes the
// underlying file. The write-back happens only when the image is not
// read-only and its high-water mark is nonzero; a never-written image
// leaves the on-disk bytes untouched.
func (img *Image) Detach() error {
	if img.file == nil {
		return errNotAttached
	}

	var err error
	if !img.readOnly && img.written() {
		var raw []byte
		switch img.geometry.Format {
		case FormatPacked16:
			raw = encodePacked16(img.words)
		case FormatPacked12:
			raw, err = encodePacked12(img.words)
		default:
			raw = encodeNative18(img.words)
		}
		if err == nil {
			_, err = img.file.WriteAt(raw, 0)
		}
	}

	closeErr := img.file.Close()
	if err == nil {
		err = closeErr
	}

	img.file = nil
	img.fileName = ""
	img.words = nil
	img.mark = nil

	return err
}

// wordsPerBlock is the native word count of one full header+data+trailer
// frame, the unit words[] is indexed in.
func (img *Image) wordsPerBlock() int {
	return img.geometry.HeaderLines/img.geometry.WordSizeLines +
		img.geometry.BlockSizeWords +
		img.geometry.TrailerLines/img.geometry.WordSizeLines
}

func (img *Image) headerWordsPerBlock() int {
	return img.geometry.HeaderLines / img.geometry.WordSizeLines
}

func (img *Image) trailerWordsPerBlock() int {
	return img.geometry.TrailerLines / img.geometry.WordSizeLines
}

// blockBase returns the index into words[] of the first header word of
// block, and reports whether block is in range.
func (img *Image) blockBase(block int) (int, bool) {
	if block < 0 || block >= img.geometry.TapeSizeBlocks {
		return 0, false
	}
	return block * img.wordsPerBlock(), true
}

// DataWord reads native word offset (0-based into the data zone, not the
// header) of block.
func (img *Image) DataWord(block, offset int) (uint32, error) {
	base, ok := img.blockBase(block)
	if !ok {
		return 0, errBlockRange
	}
	if offset < 0 || offset >= img.geometry.BlockSizeWords {
		return 0, errBlockRange
	}
	return img.words[base+img.headerWordsPerBlock()+offset], nil
}

// SetDataWord writes native word offset of block and advances the
// block's high-water mark if offset extends past it (used by a WRITE
// function that only overwrites a prefix of the block).
func (img *Image) SetDataWord(block, offset int, word uint32) error {
	if img.readOnly {
		return errWriteProtect
	}
	base, ok := img.blockBase(block)
	if !ok {
		return errBlockRange
	}
	if offset < 0 || offset >= img.geometry.BlockSizeWords {
		return errBlockRange
	}
	img.words[base+img.headerWordsPerBlock()+offset] = word & Mask18
	if uint32(offset+1) > img.mark[block] {
		img.mark[block] = uint32(offset + 1)
	}
	return nil
}

// HighWaterMark returns one past the furthest data-word offset ever
// written in block, 0 if the block has never been written since attach.
func (img *Image) HighWaterMark(block int) (uint32, error) {
	if block < 0 || block >= img.geometry.TapeSizeBlocks {
		return 0, errBlockRange
	}
	return img.mark[block], nil
}

// Header word slot indices within a block's 5-word header/trailer frame.
const (
	slotReserved0 = iota
	slotBlockNumberOrChecksum
	slotReserved2
	slotReserved3
	slotChecksumOrBlockNumber
)

// ForwardBlockNumber reads the forward block-number word stored in
// block's header.
func (img *Image) ForwardBlockNumber(block int) (uint32, error) {
	base, ok := img.blockBase(block)
	if !ok {
		return 0, errBlockRange
	}
	return img.words[base+slotBlockNumberOrChecksum], nil
}

// SetForwardBlockNumber writes the forward block-number word in block's
// header.
func (img *Image) SetForwardBlockNumber(block int, word uint32) error {
	if img.readOnly {
		return errWriteProtect
	}
	base, ok := img.blockBase(block)
	if !ok {
		return errBlockRange
	}
	img.words[base+slotBlockNumberOrChecksum] = word & Mask18
	return nil
}

// ReverseChecksum is the unconditional all-ones sentinel reported for the
// header's last word, whatever that word holds in the image; readers
// never compute a reverse checksum, they always see this fixed value.
func (img *Image) ReverseChecksum(block int) (uint32, error) {
	if _, ok := img.blockBase(block); !ok {
		return 0, errBlockRange
	}
	return Mask18, nil
}

// ForwardChecksum computes the 1's-complement checksum of block's data
// zone, freshly, every call: there is no cached checksum field to go
// stale.
func (img *Image) ForwardChecksum(block int) (uint32, error) {
	base, ok := img.blockBase(block)
	if !ok {
		return 0, errBlockRange
	}
	start := base + img.headerWordsPerBlock()
	data := img.words[start : start+img.geometry.BlockSizeWords]
	return Checksum(data), nil
}

// SetTrailerChecksum writes the forward checksum into block's trailer.
func (img *Image) SetTrailerChecksum(block int, checksum uint32) error {
	if img.readOnly {
		return errWriteProtect
	}
	base, ok := img.blockBase(block)
	if !ok {
		return errBlockRange
	}
	trailerBase := base + img.headerWordsPerBlock() + img.geometry.BlockSizeWords
	img.words[trailerBase+slotReserved0] = checksum & Mask18
	return nil
}

// ReverseBlockNumber reads the reverse block-number word, the
// complement-obverse of the forward block number, stored in block's
// trailer.
func (img *Image) ReverseBlockNumber(block int) (uint32, error) {
	base, ok := img.blockBase(block)
	if !ok {
		return 0, errBlockRange
	}
	trailerBase := base + img.headerWordsPerBlock() + img.geometry.BlockSizeWords
	return img.words[trailerBase+slotChecksumOrBlockNumber], nil
}

// SetReverseBlockNumber writes the reverse block-number word in block's
// trailer, normally ComplementObverse(forwardBlockNumber).
func (img *Image) SetReverseBlockNumber(block int, word uint32) error {
	if img.readOnly {
		return errWriteProtect
	}
	base, ok := img.blockBase(block)
	if !ok {
		return errBlockRange
	}
	trailerBase := base + img.headerWordsPerBlock() + img.geometry.BlockSizeWords
	img.words[trailerBase+slotChecksumOrBlockNumber] = word & Mask18
	return nil
}

// HeaderFrameSlots and TrailerFrameSlots are the fixed slot counts of a
// block's header and trailer, always 5 regardless of on-disk format.
const (
	HeaderFrameSlots  = headerWords
	TrailerFrameSlots = trailerWords
)

// HeaderTrailerWord reads slot idx of block's combined header/trailer
// frame (0..4 header, 5..9 trailer). The two checksum slots are
// generated fresh on every read rather than returning whatever was last
// stored there: the reverse-checksum slot (header's last, idx 4) always
// reads as the all-ones sentinel, and the forward-checksum slot
// (trailer's first, idx 5) always reads as the freshly computed
// checksum of the block's data words.
func (img *Image) HeaderTrailerWord(block, idx int) (uint32, error) {
	if idx < 0 || idx >= HeaderFrameSlots+TrailerFrameSlots {
		return 0, errBlockRange
	}
	switch idx {
	case slotBlockNumberOrChecksum: // header idx 1: forward block number.
		return img.ForwardBlockNumber(block)
	case slotChecksumOrBlockNumber: // header idx 4: reverse checksum.
		return img.ReverseChecksum(block)
	case HeaderFrameSlots + slotReserved0: // trailer idx 0: forward checksum.
		return img.ForwardChecksum(block)
	case HeaderFrameSlots + slotChecksumOrBlockNumber: // trailer idx 4: reverse block number.
		return img.ReverseBlockNumber(block)
	default:
		base, ok := img.blockBase(block)
		if !ok {
			return 0, errBlockRange
		}
		slotOffset := idx
		if idx >= HeaderFrameSlots {
			slotOffset = img.headerWordsPerBlock() + img.geometry.BlockSizeWords + (idx - HeaderFrameSlots)
		}
		return img.words[base+slotOffset], nil
	}
}

// SetHeaderTrailerWord writes slot idx of block's frame directly,
// bypassing the generated-value behavior HeaderTrailerWord's reads have
// for the checksum slots; this is what a WRITE/WRITE-ALL function uses
// to store whatever the host supplies, including into the checksum
// slots, without those writes being visible back through a later read
// (open question: checksum slots are write-only from the host's view).
func (img *Image) SetHeaderTrailerWord(block, idx int, word uint32) error {
	if idx < 0 || idx >= HeaderFrameSlots+TrailerFrameSlots {
		return errBlockRange
	}
	switch idx {
	case slotBlockNumberOrChecksum: // header idx 1: forward block number.
		return img.SetForwardBlockNumber(block, word)
	case HeaderFrameSlots + slotReserved0: // trailer idx 0: forward checksum.
		return img.SetTrailerChecksum(block, word)
	case HeaderFrameSlots + slotChecksumOrBlockNumber: // trailer idx 4: reverse block number.
		return img.SetReverseBlockNumber(block, word)
	default:
		if img.readOnly {
			return errWriteProtect
		}
		base, ok := img.blockBase(block)
		if !ok {
			return errBlockRange
		}
		slotOffset := idx
		if idx >= HeaderFrameSlots {
			slotOffset = img.headerWordsPerBlock() + img.geometry.BlockSizeWords + (idx - HeaderFrameSlots)
		}
		img.words[base+slotOffset] = word & Mask18
		return nil
	}
}
