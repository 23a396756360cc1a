package code_analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/00dev-org/llmpal/app_errors"
	"github.com/00dev-org/llmpal/code_analyzer/contracts"
	"github.com/00dev-org/llmpal/code_analyzer/models"
	"github.com/00dev-org/llmpal/embed_data"
)

const (
	rulesStart = "=== RULES START ==="
	rulesEnd   = "=== RULES END ==="

	userInstructionsStart = "=== USER INSTRUCTIONS START"
	userInstructionsEnd   = "=== USER INSTRUCTIONS END"
)

// CodeAnalyzer owns everything the run does with the local filesystem: the
// allow-list, prompt rendering, the write guard and the writes themselves.
type CodeAnalyzer struct {
	// Cwd anchors relative paths and receives quarantine dumps.
	Cwd    string
	logger *zap.Logger
	newID  func() (uuid.UUID, error)
}

// NewCodeAnalyzer initializes a new CodeAnalyzer.
func NewCodeAnalyzer(cwd string, logger *zap.Logger) contracts.ICodeAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeAnalyzer{
		Cwd:    cwd,
		logger: logger,
		newID:  uuid.NewV7,
	}
}

func (analyzer *CodeAnalyzer) resolve(path string) string {
	if analyzer.Cwd == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(analyzer.Cwd, path)
}

// CollectInputs builds the allow-list from the -f arguments and the output
// path. A directory contributes the regular files directly inside it; nested
// directories are skipped. Paths that do not exist are kept as files so the
// read fails later with a clear message.
func (analyzer *CodeAnalyzer) CollectInputs(paths []string, outputPath string) (*models.RunInputs, error) {
	var allowed, inputFiles []string

	for _, path := range paths {
		info, err := os.Stat(analyzer.resolve(path))
		if err != nil || !info.IsDir() {
			allowed = append(allowed, path)
			inputFiles = append(inputFiles, path)
			continue
		}

		entries, err := os.ReadDir(analyzer.resolve(path))
		if err != nil {
			return nil, &app_errors.Error{Kind: app_errors.KindStorage, Msg: fmt.Sprintf("Cannot read directory '%s'", path), Err: err, Path: path}
		}
		for _, entry := range entries {
			entryPath := filepath.Join(path, entry.Name())
			entryInfo, err := os.Stat(analyzer.resolve(entryPath))
			if err != nil {
				return nil, &app_errors.Error{Kind: app_errors.KindStorage, Msg: fmt.Sprintf("Error reading entry in '%s'", path), Err: err, Path: entryPath}
			}
			if entryInfo.IsDir() {
				continue
			}
			allowed = append(allowed, entryPath)
			inputFiles = append(inputFiles, entryPath)
		}
	}

	if outputPath != "" {
		allowed = append(allowed, outputPath)
	}

	return &models.RunInputs{
		Allowed:    models.NewAllowedFileSet(allowed...),
		InputFiles: inputFiles,
		OutputPath: outputPath,
	}, nil
}

// ReadInputFiles loads every input except the output path, in argument order.
func (analyzer *CodeAnalyzer) ReadInputFiles(inputs *models.RunInputs) ([]models.FileData, error) {
	var result []models.FileData
	for _, path := range inputs.InputFiles {
		if path == inputs.OutputPath {
			continue
		}
		content, err := os.ReadFile(analyzer.resolve(path))
		if err != nil {
			return nil, &app_errors.Error{Kind: app_errors.KindStorage, Msg: fmt.Sprintf("cannot read file '%s'", path), Err: err, Path: path}
		}
		result = append(result, models.FileData{RelativePath: path, Code: string(content)})
	}
	return result, nil
}

// GeneratePrompt renders the system and user prompts. It does no I/O.
func (analyzer *CodeAnalyzer) GeneratePrompt(allowed models.AllowedFileSet, rules []string, instruction string, files []models.FileData, outputPath string) (string, string) {
	return BuildSystemPrompt(allowed.Paths(), rules), BuildUserPrompt(instruction, files, outputPath)
}

// BuildSystemPrompt lists the writable paths and rules around the fixed
// output format description.
func BuildSystemPrompt(allowedPaths []string, rules []string) string {
	var sb strings.Builder

	sb.Write(embed_data.SystemIntroPrompt)
	for _, path := range allowedPaths {
		fmt.Fprintf(&sb, " %s\n", path)
	}
	sb.Write(embed_data.SystemGuidancePrompt)

	if len(rules) > 0 {
		sb.WriteString(rulesStart + "\n")
		for _, rule := range rules {
			sb.WriteString(rule + "\n")
		}
		sb.WriteString(rulesEnd + "\n")
	}

	return sb.String()
}

// BuildUserPrompt embeds the instruction and every input file in the same
// section grammar the reply is expected to use. The output file is left out.
func BuildUserPrompt(instruction string, files []models.FileData, outputPath string) string {
	var sb strings.Builder

	sb.WriteString(userInstructionsStart + "\n")
	sb.WriteString(instruction)
	sb.WriteString("\n" + userInstructionsEnd + "\n\n")
	sb.WriteString("# User input files:\n")

	for _, file := range files {
		if outputPath != "" && file.RelativePath == outputPath {
			continue
		}
		fmt.Fprintf(&sb, "=== %s === START ===\n%s\n=== %s === END ===\n", file.RelativePath, file.Code, file.RelativePath)
	}

	return sb.String()
}

// GuardChanges checks every parsed path against the allow-list. On the first
// miss the raw reply is saved to dump_<id>.log and nothing may be written.
func (analyzer *CodeAnalyzer) GuardChanges(reply string, changes []models.FileChange, allowed models.AllowedFileSet) error {
	for _, change := range changes {
		if allowed.Contains(change.RelativePath) {
			continue
		}

		msg := fmt.Sprintf("attempting to write to disallowed file: %s", change.RelativePath)
		if dump, err := analyzer.quarantine(reply); err != nil {
			analyzer.logger.Warn("Failed to save dump", zap.Error(err))
		} else {
			msg = fmt.Sprintf("%s (reply saved to %s)", msg, dump)
		}

		return &app_errors.Error{Kind: app_errors.KindSafety, Msg: msg, Path: change.RelativePath}
	}
	return nil
}

func (analyzer *CodeAnalyzer) quarantine(reply string) (string, error) {
	id, err := analyzer.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate dump id: %w", err)
	}
	name := QuarantineFileName(id)
	if err := os.WriteFile(analyzer.resolve(name), []byte(reply), 0644); err != nil {
		return "", err
	}
	return name, nil
}

// QuarantineFileName names the dump for a rejected reply. UUIDv7 ids sort by
// creation time.
func QuarantineFileName(id uuid.UUID) string {
	return fmt.Sprintf("dump_%s.log", id.String())
}

// ApplyChanges writes the approved files in order, overwriting existing
// content. The first failure stops the batch; earlier writes stay on disk.
func (analyzer *CodeAnalyzer) ApplyChanges(changes []models.FileChange) error {
	for _, change := range changes {
		content := []byte(change.Code)
		if err := os.WriteFile(analyzer.resolve(change.RelativePath), content, 0644); err != nil {
			return &app_errors.Error{Kind: app_errors.KindStorage, Msg: fmt.Sprintf("writing file '%s'", change.RelativePath), Err: err, Path: change.RelativePath}
		}

		analyzer.logger.Debug("file written",
			zap.String("path", change.RelativePath),
			zap.Int("bytes", len(content)),
			zap.String("xxh3", fmt.Sprintf("%016x", xxh3.Hash(content))),
		)

		if problem := CheckSyntax(change.RelativePath, content); problem != "" {
			analyzer.logger.Warn("written file does not parse cleanly",
				zap.String("path", change.RelativePath),
				zap.String("detail", problem),
			)
		}
	}
	return nil
}
