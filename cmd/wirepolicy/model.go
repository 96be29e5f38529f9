package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"reflect"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/reoring/wirepolicy"
)

// memberRow is one line of the model table, derived from source.
type memberRow struct {
	Name     string
	Wire     string
	Type     string
	Depth    int
	Exported bool
	Tag      wirepolicy.Tag
	Nested   bool
}

// collectMembers parses the package in dir and flattens the struct typeName
// the way the runtime model extractor does: embedded structs declared in the
// same package are expanded in place.
func collectMembers(dir, typeName string) ([]memberRow, error) {
	fs := token.NewFileSet()
	pkgs, err := parser.ParseDir(fs, dir, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	structs := make(map[string]*ast.StructType)
	for _, pkg := range pkgs {
		for _, f := range pkg.Files {
			for _, decl := range f.Decls {
				gd, ok := decl.(*ast.GenDecl)
				if !ok || gd.Tok != token.TYPE {
					continue
				}
				for _, spec := range gd.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok || ts.Name == nil {
						continue
					}
					if st, ok := ts.Type.(*ast.StructType); ok && st.Fields != nil {
						structs[ts.Name.Name] = st
					}
				}
			}
		}
	}
	st, ok := structs[typeName]
	if !ok {
		return nil, fmt.Errorf("struct type %s not found in %s", typeName, dir)
	}
	var rows []memberRow
	if err := flatten(structs, typeName, st, 0, map[string]bool{typeName: true}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func flatten(structs map[string]*ast.StructType, owner string, st *ast.StructType, depth int, visiting map[string]bool, out *[]memberRow) error {
	for _, field := range st.Fields.List {
		var tag wirepolicy.Tag
		if field.Tag != nil {
			lit, err := strconv.Unquote(field.Tag.Value)
			if err != nil {
				lit = strings.Trim(field.Tag.Value, "`")
			}
			stag := reflect.StructTag(lit)
			tag, err = wirepolicy.ParseTag(stag.Get(wirepolicy.TagName), stag.Get("json"))
			if err != nil {
				return fmt.Errorf("%s: %w", owner, err)
			}
		}
		typeStr := types.ExprString(field.Type)
		local := localStruct(structs, field.Type)

		if len(field.Names) == 0 {
			if local != "" && tag.Name == "" && !tag.Ignored && !tag.Extension && !visiting[local] {
				visiting[local] = true
				err := flatten(structs, owner, structs[local], depth+1, visiting, out)
				delete(visiting, local)
				if err != nil {
					return err
				}
				continue
			}
			name := strings.TrimPrefix(typeStr, "*")
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			*out = append(*out, row(name, typeStr, depth, tag, local != ""))
			continue
		}
		for _, n := range field.Names {
			if n.Name == "_" {
				continue
			}
			*out = append(*out, row(n.Name, typeStr, depth, tag, local != "" && !tag.Extension))
		}
	}
	return nil
}

func row(name, typ string, depth int, tag wirepolicy.Tag, nested bool) memberRow {
	r := memberRow{Name: name, Wire: tag.Name, Type: typ, Depth: depth, Exported: ast.IsExported(name), Tag: tag, Nested: nested}
	if r.Wire == "" {
		r.Wire = name
	}
	return r
}

// localStruct returns the name of a same-package struct type referenced by
// expr directly or through one pointer.
func localStruct(structs map[string]*ast.StructType, expr ast.Expr) string {
	if se, ok := expr.(*ast.StarExpr); ok {
		expr = se.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		if _, ok := structs[id.Name]; ok {
			return id.Name
		}
	}
	return ""
}

func printMembers(w io.Writer, rows []memberRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tWIRE\tVISIBILITY\tMUTABLE\tIGNORED\tNULLS\tEXTENSION\tNESTED\tDEPTH\tTYPE")
	for _, r := range rows {
		vis := wirepolicy.Public
		if !r.Exported {
			vis = wirepolicy.Restricted
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%s\t%t\t%t\t%d\t%s\n",
			r.Name, r.Wire, vis, !r.Tag.ReadOnly, r.Tag.Ignored, r.Tag.Nulls, r.Tag.Extension, r.Nested, r.Depth, r.Type)
	}
	return tw.Flush()
}
