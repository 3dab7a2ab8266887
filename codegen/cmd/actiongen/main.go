// actiongen parses Go source files looking for action config structs
// and generates the metadata registry used by "flightplan actions".
//
// Usage: go run ./codegen/cmd/actiongen ./actions
package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ActionMetadata represents the complete metadata for an action type
type ActionMetadata struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Params      []ParamMeta `json:"params"`
}

// ParamMeta represents a parameter of an action
type ParamMeta struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// ActionsRegistry holds all discovered action metadata
type ActionsRegistry struct {
	Actions []ActionMetadata `json:"actions"`
	Version string           `json:"version"`
}

// actionCommentRegex matches @action comments
// Format: @action name=xxx category=xxx description=xxx
var actionCommentRegex = regexp.MustCompile(`@action\s+(.+)`)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <directory>\n", os.Args[0])
		os.Exit(1)
	}

	dir := os.Args[1]
	actions, err := parseDirectory(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing directory: %v\n", err)
		os.Exit(1)
	}

	if len(actions) == 0 {
		fmt.Println("No action configs found")
		return
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].Name < actions[j].Name })
	registry := ActionsRegistry{
		Actions: actions,
		Version: "1.0.0",
	}

	goPath := filepath.Join(dir, "actions_registry_gen.go")
	if err := writeGoRegistry(goPath, registry); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing Go file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", goPath)
}

func parseDirectory(dir string) ([]ActionMetadata, error) {
	fset := token.NewFileSet()
	var actions []ActionMetadata

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if strings.HasSuffix(name, "_gen.go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		filePath := filepath.Join(dir, name)
		fileActions, err := parseFile(fset, filePath)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", filePath, err)
		}
		actions = append(actions, fileActions...)
	}

	return actions, nil
}

func parseFile(fset *token.FileSet, filePath string) ([]ActionMetadata, error) {
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var actions []ActionMetadata

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok || !strings.HasSuffix(typeSpec.Name.Name, "Config") {
				continue
			}

			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			meta := parseActionComment(genDecl.Doc)
			if meta == nil {
				continue
			}

			meta.Params = parseStructFields(structType)
			actions = append(actions, *meta)
		}
	}

	return actions, nil
}

func parseActionComment(doc *ast.CommentGroup) *ActionMetadata {
	if doc == nil {
		return nil
	}

	for _, comment := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(comment.Text, "//"))

		match := actionCommentRegex.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		params := match[1]
		meta := &ActionMetadata{
			Name:        extractValue(params, "name"),
			Category:    extractValue(params, "category"),
			Description: extractValue(params, "description"),
		}
		if meta.Name != "" {
			return meta
		}
	}

	return nil
}

// extractValue reads key=value where the value runs until the next known key
func extractValue(params, key string) string {
	prefix := key + "="
	idx := strings.Index(params, prefix)
	if idx == -1 {
		return ""
	}

	start := idx + len(prefix)
	if start >= len(params) {
		return ""
	}
	rest := params[start:]

	end := len(rest)
	for _, pattern := range []string{" name=", " category=", " description="} {
		if idx := strings.Index(rest, pattern); idx != -1 && idx < end {
			end = idx
		}
	}

	return strings.TrimSpace(rest[:end])
}

func parseStructFields(structType *ast.StructType) []ParamMeta {
	params := []ParamMeta{}

	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			continue
		}

		param := ParamMeta{
			Name: toSnakeCase(field.Names[0].Name),
			Type: typeToString(field.Type),
		}

		if field.Tag != nil {
			tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
			if actionTag := tag.Get("action"); actionTag != "" {
				parseActionTag(actionTag, &param)
			}
		}

		params = append(params, param)
	}

	return params
}

func parseActionTag(tag string, param *ParamMeta) {
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)

		switch {
		case part == "required":
			param.Required = true
		case strings.HasPrefix(part, "name="):
			param.Name = strings.TrimPrefix(part, "name=")
		case strings.HasPrefix(part, "default="):
			param.Default = strings.TrimPrefix(part, "default=")
		case strings.HasPrefix(part, "desc="):
			param.Description = strings.TrimPrefix(part, "desc=")
		}
	}
}

func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.ArrayType:
		return "[]" + typeToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeToString(t.Key) + "]" + typeToString(t.Value)
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	default:
		return "any"
	}
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(s[i-1])) {
				sb.WriteRune('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func writeGoRegistry(path string, registry ActionsRegistry) error {
	jsonData, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return err
	}

	code := fmt.Sprintf(`// Code generated by actiongen. DO NOT EDIT.
package actions

import (
	"encoding/json"
)

// ActionMetadata represents the complete metadata for an action type
type ActionMetadata struct {
	Name        string      %[1]sjson:"name"%[1]s
	Category    string      %[1]sjson:"category"%[1]s
	Description string      %[1]sjson:"description"%[1]s
	Params      []ParamMeta %[1]sjson:"params"%[1]s
}

// ParamMeta represents a parameter of an action
type ParamMeta struct {
	Name        string %[1]sjson:"name"%[1]s
	Type        string %[1]sjson:"type"%[1]s
	Required    bool   %[1]sjson:"required"%[1]s
	Default     string %[1]sjson:"default,omitempty"%[1]s
	Description string %[1]sjson:"description,omitempty"%[1]s
}

// actionsMetadataJSON contains the embedded JSON metadata
var actionsMetadataJSON = %[1]s%[2]s%[1]s

var actionsMetadata []ActionMetadata

func init() {
	var registry struct {
		Actions []ActionMetadata %[1]sjson:"actions"%[1]s
	}
	if err := json.Unmarshal([]byte(actionsMetadataJSON), &registry); err == nil {
		actionsMetadata = registry.Actions
	}
}

// GetActionsMetadata returns the metadata for all registered actions
func GetActionsMetadata() []ActionMetadata {
	return actionsMetadata
}

// GetActionMetadata returns the metadata for a specific action by name
func GetActionMetadata(name string) (ActionMetadata, bool) {
	for _, action := range actionsMetadata {
		if action.Name == name {
			return action, true
		}
	}
	return ActionMetadata{}, false
}

// GetActionsByCategory returns all actions in a given category
func GetActionsByCategory(category string) []ActionMetadata {
	var result []ActionMetadata
	for _, action := range actionsMetadata {
		if action.Category == category {
			result = append(result, action)
		}
	}
	return result
}

// GetCategories returns all unique categories
func GetCategories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, action := range actionsMetadata {
		if !seen[action.Category] {
			seen[action.Category] = true
			categories = append(categories, action.Category)
		}
	}
	return categories
}
`, "`", string(jsonData))

	return os.WriteFile(path, []byte(code), 0644)
}
