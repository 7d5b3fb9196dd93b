package validation

import (
	"regexp"
	"strings"
)

// CommandKind classifies a chat line.
type CommandKind int

const (
	CommandChat CommandKind = iota
	CommandRename
	CommandAIEdit
)

func (k CommandKind) String() string {
	switch k {
	case CommandRename:
		return "rename"
	case CommandAIEdit:
		return "ai_edit"
	default:
		return "chat"
	}
}

// Command is a parsed chat line. Arg is the rename value, the raw instruction, or
// the trimmed chat text.
type Command struct {
	Kind CommandKind
	Arg  string
}

const renamePrefix = "@name "

// aiPattern accepts ASCII whitespace or the ideographic space after @ai.
var aiPattern = regexp.MustCompile(`(?i)^@ai[\s\x{3000}]+(.+)$`)

// ParseCommand classifies a chat line.
func ParseCommand(text string) Command {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, renamePrefix) {
		return Command{Kind: CommandRename, Arg: strings.TrimSpace(trimmed[len(renamePrefix):])}
	}
	if m := aiPattern.FindStringSubmatch(trimmed); m != nil {
		return Command{Kind: CommandAIEdit, Arg: m[1]}
	}
	return Command{Kind: CommandChat, Arg: trimmed}
}
