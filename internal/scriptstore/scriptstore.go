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

//Package scriptstore implements the lifecycle-scriptlet blob store: a flat
//file of fixed binary headers plus payload, one record per scriptlet
//attached to an installed package.
package scriptstore

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/holocm/apkdb/internal/checksum"
	"github.com/holocm/apkdb/internal/graph"
)

//header is the fixed-width record prefix: package checksum, script type,
//payload size, all little-endian.
type header struct {
	Csum [checksum.Size]byte
	Type uint32
	Size uint32
}

const headerSize = checksum.Size + 4 + 4

//Read loads every scriptlet record from r, attaching each to its owning
//package. A record whose package checksum is unknown is silently dropped:
//a package can be purged without rewriting the whole scripts file, and the
//next Write drops its stale records for free.
func Read(r io.Reader, g *graph.Graph) error {
	buf := make([]byte, headerSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("scriptstore: reading header: %w", err)
		}
		var h header
		copy(h.Csum[:], buf[:checksum.Size])
		h.Type = binary.LittleEndian.Uint32(buf[checksum.Size : checksum.Size+4])
		h.Size = binary.LittleEndian.Uint32(buf[checksum.Size+4:])

		payload := make([]byte, h.Size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return fmt.Errorf("scriptstore: reading payload: %w", err)
		}

		pkg, ok := g.GetPackage(checksum.Checksum(h.Csum))
		if !ok {
			continue
		}
		pkg.Scripts = append(pkg.Scripts, graph.Script{
			Type: graph.ScriptType(h.Type),
			Data: payload,
		})
	}
}

//Write serializes every installed package's scripts to w in installed
//order.
func Write(w io.Writer, g *graph.Graph) error {
	var writeErr error
	g.ForEachInstalled(func(pkg *graph.Package) {
		if writeErr != nil {
			return
		}
		for _, s := range pkg.Scripts {
			if writeErr = writeRecord(w, pkg.Csum, s); writeErr != nil {
				return
			}
		}
	})
	return writeErr
}

func writeRecord(w io.Writer, csum checksum.Checksum, s graph.Script) error {
	buf := make([]byte, headerSize)
	copy(buf[:checksum.Size], csum[:])
	binary.LittleEndian.PutUint32(buf[checksum.Size:checksum.Size+4], uint32(s.Type))
	binary.LittleEndian.PutUint32(buf[checksum.Size+4:], uint32(len(s.Data)))
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := w.Write(s.Data)
	return err
}
