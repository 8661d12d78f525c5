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

//Package blob holds the small string-splitting helpers shared by the FDB
//reader, the world parser and the local-package identity fallback.
package blob

import "strings"

//RSplit splits s at the last occurrence of sep, returning (before, after,
//true). If sep does not occur in s, it returns ("", s, false).
func RSplit(s string, sep byte) (before, after string, ok bool) {
	idx := strings.LastIndexByte(s, sep)
	if idx < 0 {
		return "", s, false
	}
	return s[:idx], s[idx+1:], true
}

//Split splits s at the first occurrence of sep, returning (before, after,
//true). If sep does not occur in s, it returns (s, "", false).
func Split(s string, sep byte) (before, after string, ok bool) {
	idx := strings.IndexByte(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

//ForEachSegment calls fn once per non-empty segment of s as split by sep,
//as used for the comma-separated world constraints.
func ForEachSegment(s string, sep byte, fn func(segment string)) {
	for _, segment := range strings.Split(s, string(sep)) {
		if segment != "" {
			fn(segment)
		}
	}
}
