package code_analyzer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/00dev-org/llmpal/utils"
)

func grammarFor(language string) *sitter.Language {
	switch language {
	case "csharp":
		return csharp.GetLanguage()
	case "go":
		return golang.GetLanguage()
	case "python":
		return python.GetLanguage()
	case "java":
		return java.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	default:
		return nil
	}
}

// CheckSyntax parses a written file with Tree-sitter and describes the first
// syntax error, or returns "" when the file is clean or the language has no
// grammar. Model output is written regardless; this only feeds a warning.
func CheckSyntax(filePath string, sourceCode []byte) string {
	lang := grammarFor(utils.GetSupportedLanguage(filePath))
	if lang == nil {
		return ""
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, sourceCode)
	if err != nil {
		return fmt.Sprintf("parse failed: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return ""
	}

	node := firstErrorNode(root)
	if node == nil {
		return "syntax error"
	}
	point := node.StartPoint()
	return fmt.Sprintf("syntax error at line %d, column %d", point.Row+1, point.Column+1)
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}
