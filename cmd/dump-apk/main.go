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

package main

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/holocm/apkdb/internal/checksum"
)

//This program renders a textual representation of a package archive or a
//database file, including the compression and archive formats used and all
//file metadata contained within. It is a debugging aid, e.g. for
//inspecting damaged state. The program is called like
//
//    ./build/dump-apk < $package
//
//And renders output like this:
//
//    $ ./build/dump-apk < pkg-a-1.0.apk
//    GZip-compressed POSIX tar archive
//        >> usr/bin/ is directory (mode: 755, owner: 0, group: 0)
//        >> usr/bin/a is regular file (mode: 755, owner: 0, group: 0), content: data as shown below
//            hello

func main() {
	withChecksums := len(os.Args) > 1 && os.Args[1] == "--with-checksums"

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	dump, err := recognizeAndDump(data, withChecksums)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Println(dump)
}

//indent is a general-purpose helper for pretty-printing of nested data.
func indent(dump string) string {
	dump = strings.TrimSuffix(dump, "\n")
	prefix := "    "
	dump = prefix + strings.Replace(dump, "\n", "\n"+prefix, -1)
	return dump + "\n"
}

//recognizeAndDump converts binary input data into a readable dump (if it
//can recognize the data format).
func recognizeAndDump(data []byte, withChecksums bool) (string, error) {
	if len(data) == 0 {
		return "empty file\n", nil
	}

	var (
		result string
		err    error
	)
	switch {
	case bytes.HasPrefix(data, []byte{0x1f, 0x8b}):
		result, err = dumpGZ(data, withChecksums)
	case len(data) >= 512 && bytes.Equal(data[257:262], []byte("ustar")):
		result, err = dumpTar(data, withChecksums)
	case looksLikeFDB(data):
		result = "package database\n" + indent(string(data))
	default:
		result = "data as shown below\n" + indent(string(data))
	}

	if withChecksums {
		result = "(blake2b:" + checksum.Of(data).String() + ") " + result
	}
	return result, err
}

//looksLikeFDB guesses whether data is a line-oriented package database
//stream (single-letter tag, then a colon).
func looksLikeFDB(data []byte) bool {
	return len(data) >= 2 && data[1] == ':' &&
		data[0] >= 'A' && data[0] <= 'Z'
}

func dumpGZ(data []byte, withChecksums bool) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	data2, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	dump, err := recognizeAndDump(data2, withChecksums)
	return "GZip-compressed " + dump, err
}

func dumpTar(data []byte, withChecksums bool) (string, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	dump := "POSIX tar archive\n"

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return dump, nil
		}
		if err != nil {
			return "", err
		}

		info := header.FileInfo()
		str := ""
		isRegular := false
		switch info.Mode() & os.ModeType {
		case os.ModeDir:
			str = "directory"
		case os.ModeSymlink:
			str = fmt.Sprintf("symlink to %s", header.Linkname)
		case os.ModeDevice, os.ModeDevice | os.ModeCharDevice:
			str = "device node"
		case 0:
			str = "regular file"
			isRegular = true
		default:
			return "", fmt.Errorf("tar entry %s has unrecognized file mode (%o)", header.Name, info.Mode())
		}
		if !strings.HasPrefix(str, "symlink") {
			str += fmt.Sprintf(" (mode: %o, owner: %d, group: %d)",
				info.Mode()&os.ModePerm, header.Uid, header.Gid,
			)
		}

		entry := fmt.Sprintf(">> %s is %s", header.Name, str)
		if isRegular {
			content, err := io.ReadAll(tr)
			if err != nil {
				return "", err
			}
			sub, err := recognizeAndDump(content, withChecksums)
			if err != nil {
				return "", err
			}
			entry += ", content: " + sub
		} else {
			entry += "\n"
		}
		dump += indent(entry)
	}
}
