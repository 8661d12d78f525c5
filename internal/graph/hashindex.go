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

//Package graph implements the in-memory package/name/directory/file graph:
//the hash-indexed tables (names, packages, directories) and the
//shared-ownership discipline between directories and the files they contain.
package graph

//HashIndex is a keyed container mapping a comparable key to a heap entity.
//Go's built-in map already gives us open-hashing with value equality for
//comparable keys, so the configuration collapses to an optional destructor
//and a capacity hint sizing the initial table.
type HashIndex[K comparable, V any] struct {
	entries map[K]V
	destroy func(V)
}

//NewHashIndex constructs a HashIndex pre-sized for capacityHint entries.
//destroy may be nil if entities need no explicit teardown.
func NewHashIndex[K comparable, V any](capacityHint int, destroy func(V)) *HashIndex[K, V] {
	return &HashIndex[K, V]{
		entries: make(map[K]V, capacityHint),
		destroy: destroy,
	}
}

//Get looks up an entity by key.
func (h *HashIndex[K, V]) Get(key K) (V, bool) {
	v, ok := h.entries[key]
	return v, ok
}

//Insert adds an entity under key, trusting the caller that key is not
//already present (callers that need get-or-insert semantics check Get first;
//see GetName/GetDir).
func (h *HashIndex[K, V]) Insert(key K, value V) {
	h.entries[key] = value
}

//ForEach calls fn once per entry. Iteration order is unspecified.
func (h *HashIndex[K, V]) ForEach(fn func(K, V)) {
	for k, v := range h.entries {
		fn(k, v)
	}
}

//FreeAll invokes the destructor (if any) on every entity and empties the
//index.
func (h *HashIndex[K, V]) FreeAll() {
	if h.destroy != nil {
		for _, v := range h.entries {
			h.destroy(v)
		}
	}
	h.entries = make(map[K]V)
}

//Len returns the number of entities currently indexed.
func (h *HashIndex[K, V]) Len() int {
	return len(h.entries)
}
