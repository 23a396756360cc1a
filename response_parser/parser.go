// Package response_parser turns a model's free-form reply into an explanation
// and an ordered list of file sections.
//
// The reply grammar is line oriented:
//
//	<think> ... </think>                 discarded
//	=== EXPLAIN START === ... === EXPLAIN END ===
//	=== path/to/file === START === ... === path/to/file === END ===
//
// The close line of a file section is matched without looking at its path, so a
// file body can never contain a line of the form "=== x === END ===". Such a
// line ends the section early.
package response_parser

import (
	"bufio"
	"strings"

	"github.com/00dev-org/llmpal/app_errors"
	"github.com/00dev-org/llmpal/code_analyzer/models"
)

const (
	ThinkOpen    = "<think>"
	ThinkClose   = "</think>"
	ExplainStart = "=== EXPLAIN START ==="
	ExplainEnd   = "=== EXPLAIN END ==="

	FileMarkerPrefix = "=== "
	FileStartSuffix  = " === START ==="
	FileEndSuffix    = " === END ==="
)

// ParsedReply is the structured form of a raw reply.
type ParsedReply struct {
	Explanation string
	// Files keeps emission order. A path may repeat; applied in order the later
	// section wins.
	Files    []models.FileChange
	Trailing string
}

type state int

const (
	stateNormal state = iota
	stateInThink
	stateInExplain
	stateInFile
)

func (s state) String() string {
	switch s {
	case stateInThink:
		return "think"
	case stateInExplain:
		return "explain"
	case stateInFile:
		return "file"
	default:
		return "normal"
	}
}

type lineKind int

const (
	lineText lineKind = iota
	lineThinkOpen
	lineThinkClose
	lineExplainOpen
	lineExplainClose
	lineFileOpen
	lineFileClose
)

// classify maps one line to its sentinel kind, in precedence order. For a
// file-open line the embedded path is returned verbatim.
func classify(line string) (lineKind, string) {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, ThinkOpen):
		return lineThinkOpen, ""
	case strings.HasPrefix(trimmed, ThinkClose):
		return lineThinkClose, ""
	case trimmed == ExplainStart:
		return lineExplainOpen, ""
	case trimmed == ExplainEnd:
		return lineExplainClose, ""
	}

	if path, ok := fileStartPath(line); ok {
		return lineFileOpen, path
	}
	if strings.HasPrefix(line, FileMarkerPrefix) && strings.HasSuffix(line, FileEndSuffix) {
		return lineFileClose, ""
	}
	return lineText, ""
}

// fileStartPath extracts the text between "=== " and " === START ===".
func fileStartPath(line string) (string, bool) {
	if len(line) < len(FileMarkerPrefix)+len(FileStartSuffix) {
		return "", false
	}
	if !strings.HasPrefix(line, FileMarkerPrefix) || !strings.HasSuffix(line, FileStartSuffix) {
		return "", false
	}
	return line[len(FileMarkerPrefix) : len(line)-len(FileStartSuffix)], true
}

// scanner holds the machine's state and accumulators. A think or explain block
// may interrupt a file section; fileOpen and explainOpen record what the
// machine resumes once that block closes.
type scanner struct {
	state       state
	fileOpen    bool
	explainOpen bool
	explanation []string
	trailing    []string
	currentPath string
	currentFile []string
	files       []models.FileChange
}

// resume picks the state to return to when a think or explain block closes.
func (s *scanner) resume() state {
	switch {
	case s.explainOpen:
		return stateInExplain
	case s.fileOpen:
		return stateInFile
	default:
		return stateNormal
	}
}

// step applies one line. It never looks back at earlier lines.
func (s *scanner) step(line string) {
	kind, path := classify(line)

	switch kind {
	case lineThinkOpen:
		s.state = stateInThink
		return
	case lineThinkClose:
		s.state = s.resume()
		return
	}
	if s.state == stateInThink {
		return
	}

	switch kind {
	case lineExplainOpen:
		s.explainOpen = true
		s.state = stateInExplain
		return
	case lineExplainClose:
		s.explainOpen = false
		s.state = s.resume()
		return
	}
	if s.state == stateInExplain {
		s.explanation = append(s.explanation, line)
		return
	}

	switch kind {
	case lineFileOpen:
		s.fileOpen = true
		s.state = stateInFile
		s.currentPath = path
		s.currentFile = s.currentFile[:0]
		return
	case lineFileClose:
		// A close line outside a section is dropped.
		if s.fileOpen && s.currentPath != "" {
			s.files = append(s.files, models.FileChange{
				RelativePath: s.currentPath,
				Code:         strings.Join(s.currentFile, "\n"),
			})
		}
		s.fileOpen = false
		s.state = stateNormal
		s.currentPath = ""
		return
	}

	if s.state == stateInFile {
		s.currentFile = append(s.currentFile, line)
		return
	}
	s.trailing = append(s.trailing, line)
}

// Parse scans the reply in a single forward pass. A file section still open at
// end of input, even one interrupted by a think or explain block, is a format
// error and nothing is returned.
func Parse(reply string) (*ParsedReply, error) {
	s := &scanner{state: stateNormal}

	for _, line := range splitLines(reply) {
		s.step(line)
	}

	if s.fileOpen {
		return nil, app_errors.New(app_errors.KindFormat,
			"unexpected end of response while parsing a file section (%s)", s.currentPath)
	}

	return &ParsedReply{
		Explanation: strings.Join(s.explanation, "\n"),
		Files:       s.files,
		Trailing:    strings.Join(s.trailing, "\n"),
	}, nil
}

// splitLines splits on '\n', drops one trailing '\r' per line and does not
// yield an empty last line for text ending in a newline.
func splitLines(text string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
