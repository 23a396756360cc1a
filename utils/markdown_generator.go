package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// PlainTheme turns highlighting off.
const PlainTheme = "none"

// RenderAndPrintMarkdown writes the model's explanation to w followed by a
// newline. Inside fenced code blocks, diff-style "+" and "-" lines are colored
// green and red; everything else goes through the chroma markdown lexer.
func RenderAndPrintMarkdown(w io.Writer, content string, theme string) error {
	if theme == "" || theme == PlainTheme {
		_, err := fmt.Fprintln(w, content)
		return err
	}

	isCodeBlock := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "```") {
			isCodeBlock = !isCodeBlock
		}

		switch {
		case isCodeBlock && strings.HasPrefix(line, "+"):
			fmt.Fprint(w, "\x1b[92m"+line+"\x1b[0m\n")
		case isCodeBlock && strings.HasPrefix(line, "-"):
			fmt.Fprint(w, "\x1b[91m"+line+"\x1b[0m\n")
		default:
			if err := quick.Highlight(w, line+"\n", "markdown", "terminal256", theme); err != nil {
				return err
			}
		}
	}

	return nil
}
