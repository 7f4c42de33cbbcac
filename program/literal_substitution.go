package program

import (
	"fmt"
	"strconv"
	"strings"
)

// LiteralSubstitution is the input-preprocessing contract §6 names but
// leaves to an external collaborator: it resolves the two placeholder
// literals a frontend may leave in a line — "~" for the program's default
// log-scale and "#" for its maximum usable level — against ctx. Grounded on
// basic_preprocessor.cc's BasicPreprocessor::DoPass SedCommand calls (the
// per-line numbering those calls feed into is PreprocessLines' job below,
// since it needs the whole line sequence, not one line at a time).
func LiteralSubstitution(line string, ctx ProgramContext) string {
	line = strings.ReplaceAll(line, "~", strconv.Itoa(int(ctx.DefaultLogScale)))
	line = strings.ReplaceAll(line, "#", strconv.Itoa(int(ctx.UsableLevels)))
	return line
}

// PreprocessLines applies LiteralSubstitution to every line of text against
// ctx, then prepends each line with "<line_number> 0 " (0-indexed),
// following BasicPreprocessor::DoPass's linum loop exactly. Panics on empty
// input, mirroring the source's LOG(FATAL) << "Empty frontend input!".
func PreprocessLines(text string, ctx ProgramContext) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 1 {
		panic("internal invariant violation: PreprocessLines: empty frontend input")
	}
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d 0 %s\n", i, LiteralSubstitution(line, ctx))
	}
	return b.String()
}
