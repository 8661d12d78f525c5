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

//Package scripts classifies and runs package lifecycle scriptlets.
package scripts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/holocm/apkdb/internal/graph"
)

//suffixType maps a scriptlet filename suffix to its ScriptType, following
//the var/db/apk/<pkgname>/<pkgversion>/<scriptname> legacy naming that the
//archive install engine recognizes.
var suffixType = map[string]graph.ScriptType{
	"pre-install":    graph.ScriptPreInstall,
	"post-install":   graph.ScriptPostInstall,
	"pre-upgrade":    graph.ScriptPreUpgrade,
	"post-upgrade":   graph.ScriptPostUpgrade,
	"pre-deinstall":  graph.ScriptPreDeinstall,
	"post-deinstall": graph.ScriptPostDeinstall,
}

//Classify returns the ScriptType for a scriptlet filename. Unrecognized
//names report ok=false and are skipped by the install engine.
func Classify(name string) (graph.ScriptType, bool) {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	t, ok := suffixType[ext]
	return t, ok
}

//ExitKeepGoing is the scriptlet exit code meaning "non-fatal, continue the
//transaction". Run returns any other non-zero exit as an error; the install
//engine aborts on a failed pre-install/upgrade/deinstall script and only logs
//a failed post-install/upgrade/deinstall script.
const ExitKeepGoing = 148

//Run executes a scriptlet's payload as a shell script chrooted at rootPath,
//passing pkgName and pkgVersion as $1/$2. It returns (keepGoing, err):
//keepGoing is true when the scriptlet exited with ExitKeepGoing, which
//callers log as a warning rather than aborting the transaction.
func Run(ctx context.Context, rootPath string, s graph.Script, pkgName, pkgVersion string) (keepGoing bool, err error) {
	//staged inside rootPath/tmp so it remains reachable after the chroot
	stageDir := filepath.Join(rootPath, "tmp")
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return false, fmt.Errorf("scripts: staging scriptlet: %w", err)
	}
	tmp, err := os.CreateTemp(stageDir, "apkdb-script-*")
	if err != nil {
		return false, fmt.Errorf("scripts: staging scriptlet: %w", err)
	}
	stagedName := "/tmp/" + filepath.Base(tmp.Name())
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(s.Data); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	cmd := exec.CommandContext(ctx, "chroot", rootPath, "/bin/sh", stagedName, pkgName, pkgVersion)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err = cmd.Run()
	if err == nil {
		return false, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == ExitKeepGoing {
		return true, nil
	}
	return false, fmt.Errorf("scriptlet failed: %w: %s", err, stderr.String())
}
