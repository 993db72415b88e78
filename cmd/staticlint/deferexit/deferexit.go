// Package deferexit defines an analyzer that reports process exits from a
// function that has deferred calls. os.Exit and log.Fatal end the process at
// once, so the session file, the notification timers and the logger would be
// left unflushed.
package deferexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "deferexit",
	Doc:  "reports os.Exit and log.Fatal calls in functions with deferred calls",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		// Exclude go-build cache files
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			switch fn := n.(type) {
			case *ast.FuncDecl:
				if fn.Body != nil {
					checkBody(pass, fn.Body)
				}
			case *ast.FuncLit:
				checkBody(pass, fn.Body)
			}
			return true
		})
	}

	return nil, nil
}

type exitCall struct {
	call *ast.CallExpr
	name string
}

// checkBody looks at one function body. Nested function literals are checked
// on their own.
func checkBody(pass *analysis.Pass, body *ast.BlockStmt) {
	hasDefer := false
	var exits []exitCall

	ast.Inspect(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.DeferStmt:
			hasDefer = true
			return false
		case *ast.CallExpr:
			if name, ok := exitName(pass, node); ok {
				exits = append(exits, exitCall{call: node, name: name})
			}
		}
		return true
	})

	if !hasDefer {
		return
	}
	for _, exit := range exits {
		pass.Reportf(exit.call.Pos(), "%s skips the deferred calls of this function", exit.name)
	}
}

func exitName(pass *analysis.Pass, call *ast.CallExpr) (string, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", false
	}

	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return "", false
	}

	switch fn.Pkg().Path() {
	case "os":
		if fn.Name() == "Exit" {
			return "os.Exit", true
		}
	case "log":
		if strings.HasPrefix(fn.Name(), "Fatal") {
			return "log." + fn.Name(), true
		}
	}

	return "", false
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/") || strings.Contains(path, `\go-build\`)
}
