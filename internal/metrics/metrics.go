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

//Package metrics exposes prometheus counters for install/purge activity.
//Callers register them with a prometheus.Registerer of their choosing; no
//HTTP server is started here.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	//PackagesInstalled counts successful package installs.
	PackagesInstalled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "apkdb",
		Name:      "packages_installed_total",
		Help:      "Number of packages successfully installed.",
	})

	//PackagesPurged counts successful package purges.
	PackagesPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "apkdb",
		Name:      "packages_purged_total",
		Help:      "Number of packages successfully purged.",
	})

	//InstallFailures counts install transactions that aborted.
	InstallFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "apkdb",
		Name:      "install_failures_total",
		Help:      "Number of install transactions that aborted with an error.",
	})

	//FilesWritten counts regular-file archive entries extracted to disk.
	FilesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "apkdb",
		Name:      "files_written_total",
		Help:      "Number of regular files extracted from package archives.",
	})

	//DirsLive reports the current live directory count.
	DirsLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "apkdb",
		Name:      "dirs_live",
		Help:      "Current number of directories with at least one owned file.",
	})
)

//Registry bundles the collectors above.
var Registry = []prometheus.Collector{
	PackagesInstalled,
	PackagesPurged,
	InstallFailures,
	FilesWritten,
	DirsLive,
}

//MustRegister registers every collector in Registry with reg.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(Registry...)
}
