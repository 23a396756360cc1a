package contracts

import "github.com/00dev-org/llmpal/code_analyzer/models"

type ICodeAnalyzer interface {
	CollectInputs(paths []string, outputPath string) (*models.RunInputs, error)
	ReadInputFiles(inputs *models.RunInputs) ([]models.FileData, error)
	GeneratePrompt(allowed models.AllowedFileSet, rules []string, instruction string, files []models.FileData, outputPath string) (string, string)
	GuardChanges(reply string, changes []models.FileChange, allowed models.AllowedFileSet) error
	ApplyChanges(changes []models.FileChange) error
}
