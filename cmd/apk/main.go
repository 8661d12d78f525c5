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
	"context"
	"fmt"
	"os"
	"strings"

	flag "github.com/ogier/pflag"

	"github.com/holocm/apkdb/internal/apkdb"
	"github.com/holocm/apkdb/internal/solver"
)

const version = "0.3.0"

func main() {
	fs := flag.NewFlagSet("apk", flag.ExitOnError)
	root := fs.StringP("root", "r", "/", "Manage the filesystem rooted at this directory")
	quiet := fs.BoolP("quiet", "q", false, "Print only errors")
	repo := fs.StringP("repository", "X", "", "Use an additional package repository")
	showVersion := fs.Bool("version", false, "Print the version and exit")
	fs.Usage = printHelp
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if *showVersion {
		fmt.Println("apk " + version)
		return
	}
	args := fs.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(1)
	}
	cmd, args := args[0], args[1:]

	if cmd == "create" {
		if err := apkdb.Create(*root); err != nil {
			showError(err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	db, err := apkdb.Open(ctx, apkdb.Options{
		Root:            *root,
		Quiet:           *quiet,
		ExtraRepository: *repo,
	})
	if err != nil {
		showError(err)
		os.Exit(1)
	}
	defer db.Close()

	switch cmd {
	case "add":
		if len(args) == 0 {
			showError(fmt.Errorf("add: at least one package name or archive is required"))
			os.Exit(1)
		}
		for _, arg := range args {
			if strings.HasSuffix(arg, ".apk") {
				pkg, err := db.PkgAddFile(arg)
				if err != nil {
					showError(err)
					os.Exit(1)
				}
				db.WorldAdd(solver.Constraint{Name: pkg.Name.Name, Op: "=", Version: pkg.Version})
				continue
			}
			c, err := parseConstraintArg(arg)
			if err != nil {
				showError(err)
				os.Exit(1)
			}
			db.WorldAdd(c)
		}
		commit(ctx, db)
	case "del":
		if len(args) == 0 {
			showError(fmt.Errorf("del: at least one package name is required"))
			os.Exit(1)
		}
		for _, name := range args {
			if !db.WorldRemove(name) {
				showError(fmt.Errorf("del: %s is not in the world", name))
				os.Exit(1)
			}
		}
		commit(ctx, db)
	case "upgrade":
		commit(ctx, db)
	case "index":
		if err := db.IndexWrite(os.Stdout); err != nil {
			showError(err)
			os.Exit(1)
		}
	default:
		showError(fmt.Errorf("unrecognized command: %q", cmd))
		printHelp()
		os.Exit(1)
	}
}

func commit(ctx context.Context, db *apkdb.Database) {
	if err := db.RecalculateAndCommit(ctx); err != nil {
		showError(err)
		os.Exit(2)
	}
}

//parseConstraintArg accepts "name", "name=version" or "name>=version".
func parseConstraintArg(arg string) (solver.Constraint, error) {
	for _, op := range []string{">=", "="} {
		if name, ver, ok := strings.Cut(arg, op); ok {
			if name == "" || ver == "" {
				return solver.Constraint{}, fmt.Errorf("malformed package constraint: %q", arg)
			}
			return solver.Constraint{Name: name, Op: op, Version: ver}, nil
		}
	}
	return solver.Constraint{Name: arg}, nil
}

func printHelp() {
	program := os.Args[0]
	fmt.Printf("Usage: %s <options> <command> [arguments]\n\nCommands:\n", program)
	fmt.Println("  create\t\tInitialize an empty database under the root")
	fmt.Println("  add <pkg>...\t\tAdd packages (names, constraints or .apk files) to the world and commit")
	fmt.Println("  del <name>...\t\tRemove packages from the world and commit")
	fmt.Println("  upgrade\t\tRe-resolve the world and commit")
	fmt.Println("  index\t\t\tWrite a repository index for all known packages to stdout")
	fmt.Println("\nOptions:")
	fmt.Println("  -r, --root <dir>\tManage the filesystem rooted at <dir> (default /)")
	fmt.Println("  -q, --quiet\t\tPrint only errors")
	fmt.Println("  -X, --repository <url>\tUse an additional package repository")
	fmt.Println("      --version\t\tPrint the version and exit")
}

func showError(err error) {
	fmt.Fprintf(os.Stderr, "\x1b[31m\x1b[1m!!\x1b[0m %s\n", err.Error())
}
