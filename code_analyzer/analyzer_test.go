package code_analyzer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/00dev-org/llmpal/app_errors"
	"github.com/00dev-org/llmpal/code_analyzer/models"
	"github.com/00dev-org/llmpal/logging"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func newTestAnalyzer(dir string, logger *zap.Logger) *CodeAnalyzer {
	return NewCodeAnalyzer(dir, logger).(*CodeAnalyzer)
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "src/b.go", "b")
	writeFile(t, dir, "src/a.go", "a")
	writeFile(t, dir, "src/nested/deep.go", "deep")

	analyzer := newTestAnalyzer(dir, nil)
	inputs, err := analyzer.CollectInputs([]string{"main.go", "src"}, "README.md")
	require.NoError(t, err)

	srcA := filepath.Join("src", "a.go")
	srcB := filepath.Join("src", "b.go")
	assert.Equal(t, []string{"main.go", srcA, srcB}, inputs.InputFiles)
	assert.Equal(t, "README.md", inputs.OutputPath)
	assert.ElementsMatch(t, []string{"main.go", srcA, srcB, "README.md"}, inputs.Allowed.Paths())
	assert.False(t, inputs.Allowed.Contains(filepath.Join("src", "nested", "deep.go")))
	assert.False(t, inputs.Allowed.Contains(filepath.Join("src", "nested")))
}

func TestCollectInputs_MissingPathIsTreatedAsFile(t *testing.T) {
	analyzer := newTestAnalyzer(t.TempDir(), nil)

	inputs, err := analyzer.CollectInputs([]string{"missing.txt"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"missing.txt"}, inputs.InputFiles)
	assert.True(t, inputs.Allowed.Contains("missing.txt"))
	assert.Equal(t, 1, inputs.Allowed.Len())

	_, err = analyzer.ReadInputFiles(inputs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, app_errors.ErrStorage))
	assert.Contains(t, err.Error(), "cannot read file 'missing.txt'")
}

func TestReadInputFiles_SkipsOutputPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "out.txt", "old output")

	analyzer := newTestAnalyzer(dir, nil)
	inputs, err := analyzer.CollectInputs([]string{"a.txt", "out.txt"}, "out.txt")
	require.NoError(t, err)

	files, err := analyzer.ReadInputFiles(inputs)
	require.NoError(t, err)
	assert.Equal(t, []models.FileData{{RelativePath: "a.txt", Code: "alpha"}}, files)
}

func TestBuildSystemPrompt(t *testing.T) {
	expected := "Follow user instructions. When asked to make changes, apply changes to given files. \n" +
		"When asked to create a file, create it. When asked questions, just answer them without creating or modifying files.\n" +
		"When changing files, output an explanation with brief and blunt information about changes.\n" +
		"Then output modified files. Always output full contents of changed files.\n" +
		"Never propose to output files other than the allowed ones:\n" +
		" file1.rs\n" +
		" file2.rs\n" +
		"When the task requires creating files and you are not allowed to create them, mention the issue in the comments section.\n" +
		"When asked to create a new file, output to a new file or extract something from other files - only use allowed files.\n" +
		"When asked to explain code, answer questions, suggest changes or improvements - output only in the EXPLAIN section without modifying files. \n" +
		"Never explain stuff by adding comments to the code unless directly asked to do so.\n" +
		"Do not make unnecessary changes in files. Do not add code comments when not requested. Omit files that need no changes. \n" +
		"Always use defined output format. Do not output additional information outside of defined schema. \n" +
		"Do not change file formatting (spaces, tabs, etc.). New code should have formatting and style consistent with existing code.\n\n" +
		"# Output format - example\n" +
		"=== EXPLAIN START ===\n" +
		"Brief explanations and answers to questions\n" +
		"=== EXPLAIN END ===\n" +
		"=== file1.txt === START ===\n" +
		"edited file\n" +
		"=== file1.txt === END ===\n" +
		"=== file2.txt === START ===\n" +
		"edited file\n" +
		"=== file2.txt === END ===\n\n" +
		"=== RULES START ===\n" +
		"use tabs\n" +
		"no comments\n" +
		"=== RULES END ===\n"

	assert.Equal(t, expected, BuildSystemPrompt([]string{"file1.rs", "file2.rs"}, []string{"use tabs", "no comments"}))
}

func TestBuildSystemPrompt_NoRules(t *testing.T) {
	prompt := BuildSystemPrompt([]string{"file1.rs"}, nil)

	assert.Contains(t, prompt, "file1.rs\nWhen the task requires creating files")
	assert.NotContains(t, prompt, rulesStart)
	assert.NotContains(t, prompt, rulesEnd)
	assert.True(t, strings.HasSuffix(prompt, "=== file2.txt === END ===\n\n"))
}

func TestBuildUserPrompt(t *testing.T) {
	files := []models.FileData{
		{RelativePath: "a.txt", Code: "alpha\n"},
		{RelativePath: "out.txt", Code: "ignored"},
		{RelativePath: "b.txt", Code: "beta"},
	}

	expected := "=== USER INSTRUCTIONS START\n" +
		"do things\n" +
		"=== USER INSTRUCTIONS END\n\n" +
		"# User input files:\n" +
		"=== a.txt === START ===\nalpha\n\n=== a.txt === END ===\n" +
		"=== b.txt === START ===\nbeta\n=== b.txt === END ===\n"

	assert.Equal(t, expected, BuildUserPrompt("do things", files, "out.txt"))
}

func TestBuildUserPrompt_NoFiles(t *testing.T) {
	assert.Equal(t,
		"=== USER INSTRUCTIONS START\ntest\n=== USER INSTRUCTIONS END\n\n# User input files:\n",
		BuildUserPrompt("test", nil, ""))
}

func TestGeneratePrompt_UsesSortedAllowList(t *testing.T) {
	analyzer := newTestAnalyzer("", nil)
	allowed := models.NewAllowedFileSet("z.txt", "a.txt")

	system, user := analyzer.GeneratePrompt(allowed, nil, "hi", nil, "")
	assert.Contains(t, system, " a.txt\n z.txt\n")
	assert.Contains(t, user, "hi")
}

func TestGuardChanges_AllAllowed(t *testing.T) {
	dir := t.TempDir()
	analyzer := newTestAnalyzer(dir, nil)

	err := analyzer.GuardChanges("reply", []models.FileChange{{RelativePath: "a.txt", Code: "hi"}}, models.NewAllowedFileSet("a.txt"))
	require.NoError(t, err)
	assert.Empty(t, listDir(t, dir))
}

func TestGuardChanges_DisallowedPathQuarantinesReply(t *testing.T) {
	dir := t.TempDir()
	id := uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")
	analyzer := newTestAnalyzer(dir, nil)
	analyzer.newID = func() (uuid.UUID, error) { return id, nil }

	reply := "=== a.txt === START ===\nhi\n=== a.txt === END ===\n=== ../etc/passwd === START ===\nx\n=== ../etc/passwd === END ==="
	changes := []models.FileChange{
		{RelativePath: "a.txt", Code: "hi"},
		{RelativePath: "../etc/passwd", Code: "x"},
	}

	err := analyzer.GuardChanges(reply, changes, models.NewAllowedFileSet("a.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, app_errors.ErrSafety))

	var appErr *app_errors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "../etc/passwd", appErr.Path)
	assert.Contains(t, err.Error(), "attempting to write to disallowed file: ../etc/passwd")

	dump := QuarantineFileName(id)
	assert.Contains(t, err.Error(), dump)
	assert.Equal(t, []string{dump}, listDir(t, dir))
	assert.Equal(t, reply, readFile(t, dir, dump))
}

func TestGuardChanges_NoNormalization(t *testing.T) {
	analyzer := newTestAnalyzer(t.TempDir(), nil)

	for _, path := range []string{"./a.txt", "a.txt ", "A.txt", "dir/../a.txt"} {
		err := analyzer.GuardChanges("r", []models.FileChange{{RelativePath: path}}, models.NewAllowedFileSet("a.txt"))
		assert.True(t, errors.Is(err, app_errors.ErrSafety), path)
	}
}

func TestGuardChanges_DumpFailureStillRejects(t *testing.T) {
	var logs bytes.Buffer
	analyzer := newTestAnalyzer(t.TempDir(), logging.NewWriter(&logs, zapcore.DebugLevel))
	analyzer.newID = func() (uuid.UUID, error) { return uuid.Nil, errors.New("no entropy") }

	err := analyzer.GuardChanges("r", []models.FileChange{{RelativePath: "b.txt"}}, models.NewAllowedFileSet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, app_errors.ErrSafety))
	assert.Contains(t, logs.String(), "Failed to save dump")
}

func TestQuarantineFileName_IsTimeOrdered(t *testing.T) {
	first, err := uuid.NewV7()
	require.NoError(t, err)
	second, err := uuid.NewV7()
	require.NoError(t, err)

	assert.Less(t, QuarantineFileName(first), QuarantineFileName(second))
	assert.True(t, strings.HasPrefix(QuarantineFileName(first), "dump_"))
	assert.True(t, strings.HasSuffix(QuarantineFileName(first), ".log"))
}

func TestApplyChanges_WritesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "old content that is longer")

	var logs bytes.Buffer
	analyzer := newTestAnalyzer(dir, logging.NewWriter(&logs, zapcore.DebugLevel))

	err := analyzer.ApplyChanges([]models.FileChange{
		{RelativePath: "a.txt", Code: "first"},
		{RelativePath: "b.txt", Code: "line1\nline2"},
		{RelativePath: "a.txt", Code: "second"},
	})
	require.NoError(t, err)

	assert.Equal(t, "second", readFile(t, dir, "a.txt"))
	assert.Equal(t, "line1\nline2", readFile(t, dir, "b.txt"))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, listDir(t, dir))
	assert.Contains(t, logs.String(), "file written")
	assert.Contains(t, logs.String(), "xxh3")
}

func TestApplyChanges_StopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	analyzer := newTestAnalyzer(dir, nil)

	err := analyzer.ApplyChanges([]models.FileChange{
		{RelativePath: "a.txt", Code: "written"},
		{RelativePath: filepath.Join("missing", "b.txt"), Code: "fails"},
		{RelativePath: "c.txt", Code: "never"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, app_errors.ErrStorage))

	assert.Equal(t, "written", readFile(t, dir, "a.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "c.txt"))
}

func TestApplyChanges_WarnsOnBrokenSyntax(t *testing.T) {
	var logs bytes.Buffer
	analyzer := newTestAnalyzer(t.TempDir(), logging.NewWriter(&logs, zapcore.WarnLevel))

	require.NoError(t, analyzer.ApplyChanges([]models.FileChange{{RelativePath: "main.go", Code: "package main\n\nfunc main() {\n"}}))
	assert.Contains(t, logs.String(), "does not parse cleanly")
	assert.Contains(t, logs.String(), "main.go")
}
