package models

import "sort"

// FileData holds the path and content of an input file sent to the model.
type FileData struct {
	RelativePath string
	Code         string
}

// FileChange is one file section parsed out of a model reply.
type FileChange struct {
	RelativePath string
	Code         string
}

// AllowedFileSet is the exact set of paths the model may write during a run.
// It is built once from the user's inputs and never mutated afterwards.
type AllowedFileSet struct {
	paths map[string]struct{}
}

// NewAllowedFileSet copies paths into a new set.
func NewAllowedFileSet(paths ...string) AllowedFileSet {
	set := AllowedFileSet{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		set.paths[p] = struct{}{}
	}
	return set
}

// Contains reports an exact string match, without any path normalization.
func (s AllowedFileSet) Contains(path string) bool {
	_, ok := s.paths[path]
	return ok
}

// Paths returns the members in sorted order.
func (s AllowedFileSet) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s AllowedFileSet) Len() int {
	return len(s.paths)
}

// RunInputs is everything collected from the user's file arguments.
type RunInputs struct {
	Allowed    AllowedFileSet
	InputFiles []string
	OutputPath string
}
