package utils

import (
	"path/filepath"
	"strings"
)

var languageByExtension = map[string]string{
	".go":   "go",
	".py":   "python",
	".java": "java",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".cs":   "csharp",
	".rs":   "rust",
	".zig":  "zig",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
}

// GetSupportedLanguage maps a file name to the language name used for syntax
// checks and highlighting, or "" when the extension is unknown.
func GetSupportedLanguage(filePath string) string {
	return languageByExtension[strings.ToLower(filepath.Ext(filePath))]
}
