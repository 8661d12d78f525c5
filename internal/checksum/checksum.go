/*******************************************************************************
*
* Copyright 2016 Stefan Majewsky <majewsky@gmx.net>
*
* This file is part of Holo.
*
* Holo is free software: you can redistribute it and/or modify it under the
* terms of the GNU General Public License as published by the Free Software
* Foundation, either version 3 of the License, or (at your option) any later
* version.
*
* Holo is distributed in the hope that it will be useful, but WITHOUT ANY
* WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS FOR
* A PARTICULAR PURPOSE. See the GNU General Public License for more details.
*
* You should have received a copy of the GNU General Public License along with
* Holo. If not, see <http://www.gnu.org/licenses/>.
*
*******************************************************************************/

//Package checksum implements the fixed-width content digest that packages
//and files are keyed by, as a BLAKE2b-256 wrapper.
package checksum

import (
	"encoding/hex"
	"errors"
	"hash"

	"golang.org/x/crypto/blake2b"
)

//Size is the width, in bytes, of a Checksum.
const Size = 32

//Checksum is a fixed-width opaque digest. The zero value is the sentinel
//meaning "unknown" (see Bad and Valid).
type Checksum [Size]byte

//Bad is the well-known sentinel meaning "unknown checksum".
var Bad Checksum

//Valid reports whether c is not the bad-checksum sentinel.
func (c Checksum) Valid() bool {
	return c != Bad
}

//Bytes returns the digest's raw bytes.
func (c Checksum) Bytes() []byte {
	return c[:]
}

//Hash reuses the leading machine word of the digest directly for
//hash-table bucketing: checksums are already high-entropy, computing a
//second hash over them buys nothing.
func (c Checksum) Hash() uint64 {
	var h uint64
	for i := 0; i < 8; i++ {
		h = h<<8 | uint64(c[i])
	}
	return h
}

//Equal reports whether two digests are bytewise equal.
func (c Checksum) Equal(other Checksum) bool {
	return c == other
}

//String formats the digest as lowercase hex.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

//Parse decodes a hex digest, failing on malformed input or wrong length.
func Parse(hexDigest string) (Checksum, error) {
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return Bad, err
	}
	if len(raw) != Size {
		return Bad, errors.New("checksum: wrong digest length")
	}
	var c Checksum
	copy(c[:], raw)
	return c, nil
}

//Digester incrementally computes a Checksum.
type Digester struct {
	h hash.Hash
}

//NewDigester starts a fresh digest computation.
func NewDigester() *Digester {
	h, err := blake2b.New256(nil)
	if err != nil {
		//blake2b.New256 only fails for an oversized key, and we pass none
		panic(err)
	}
	return &Digester{h: h}
}

//Process feeds more bytes into the running digest.
func (d *Digester) Process(p []byte) {
	_, _ = d.h.Write(p)
}

//Write makes a Digester usable as an io.Writer, e.g. behind io.TeeReader.
func (d *Digester) Write(p []byte) (int, error) {
	d.Process(p)
	return len(p), nil
}

//Finish returns the completed digest. The Digester must not be reused
//afterwards.
func (d *Digester) Finish() Checksum {
	var c Checksum
	copy(c[:], d.h.Sum(nil))
	return c
}

//Of is a convenience wrapper computing the checksum of a single byte slice.
func Of(data []byte) Checksum {
	d := NewDigester()
	d.Process(data)
	return d.Finish()
}
