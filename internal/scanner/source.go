package scanner

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/vitebski/schema-memory/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// EntityDirective marks a struct type as a managed entity
const EntityDirective = "//schema:entity"

// TagKey is the struct tag carrying a field annotation
const TagKey = "schema"

// ScanSource walks root and returns every struct type marked with the entity
// directive. The location of an entity is its file path relative to root,
// slash separated. A file declaring several entities yields several
// descriptors with the same location.
func ScanSource(root string) ([]models.EntityDescriptor, error) {
	var descriptors []models.EntityDescriptor
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		location := norm.NFC.String(filepath.ToSlash(rel))

		for _, entity := range entitiesInFile(file) {
			entity.Location = location
			descriptors = append(descriptors, entity)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}

	return descriptors, nil
}

// entitiesInFile collects the marked struct types of a parsed file
func entitiesInFile(file *ast.File) []models.EntityDescriptor {
	var entities []models.EntityDescriptor

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			// A lone type declaration keeps its doc comment on the GenDecl
			doc := typeSpec.Doc
			if doc == nil && len(genDecl.Specs) == 1 {
				doc = genDecl.Doc
			}
			if !hasDirective(doc) {
				continue
			}

			entities = append(entities, models.EntityDescriptor{
				Name:   norm.NFC.String(typeSpec.Name.Name),
				Fields: structFields(structType),
			})
		}
	}

	return entities
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, comment := range doc.List {
		if strings.TrimSpace(comment.Text) == EntityDirective {
			return true
		}
	}
	return false
}

func structFields(structType *ast.StructType) []models.FieldDescriptor {
	var fields []models.FieldDescriptor

	for _, field := range structType.Fields.List {
		fieldType := types.ExprString(field.Type)

		annotation := ""
		if field.Tag != nil {
			if raw, err := strconv.Unquote(field.Tag.Value); err == nil {
				annotation = reflect.StructTag(raw).Get(TagKey)
			}
		}

		// Embedded fields are named after their type
		if len(field.Names) == 0 {
			fields = append(fields, models.FieldDescriptor{Name: fieldType, Type: fieldType, Annotation: annotation})
			continue
		}
		for _, name := range field.Names {
			fields = append(fields, models.FieldDescriptor{Name: name.Name, Type: fieldType, Annotation: annotation})
		}
	}

	return fields
}
