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

//Package ec collects multiple errors for aggregate reporting, e.g. while
//validating a world expression where every malformed entry should be
//reported, not just the first one.
package ec

import (
	"errors"
	"fmt"
)

//Collector is a wrapper around []error that simplifies code where multiple
//errors can happen and need to be aggregated for collective display.
type Collector struct {
	Errors []error
}

//Add adds an error to this collector. If nil is given, nothing happens, so
//you can safely write
//
//	ec.Add(OperationThatMightFail())
func (c *Collector) Add(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

//Addf adds an error to this collector by passing the arguments into
//fmt.Errorf(). If only one argument is given, it is used as the error
//string verbatim.
func (c *Collector) Addf(format string, args ...interface{}) {
	if len(args) > 0 {
		c.Errors = append(c.Errors, fmt.Errorf(format, args...))
	} else {
		c.Errors = append(c.Errors, errors.New(format))
	}
}

//HasErrors returns whether any error was collected.
func (c *Collector) HasErrors() bool {
	return len(c.Errors) > 0
}

//Join collapses the collected errors into a single error via errors.Join,
//or nil if none were collected.
func (c *Collector) Join() error {
	if !c.HasErrors() {
		return nil
	}
	return errors.Join(c.Errors...)
}
