package composer

import "strings"

// Command describes a slash command the composer understands. ContentBearing
// commands (e.g. /giphy) carry their payload in the argument text, so an
// empty argument is not sendable. Instant commands are resolved without
// further typing, e.g. picked from the instant-commands overlay.
type Command struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ContentBearing bool   `json:"content_bearing"`
	Instant        bool   `json:"instant"`
}

// CommandSet resolves command names typed after a leading slash. The default
// implementation lives in internal/commands.
type CommandSet interface {
	Lookup(name string) (Command, bool)
}

// ActiveCommand is the command currently bound to the composer text, plus
// the argument text that follows it.
type ActiveCommand struct {
	Command Command `json:"command"`
	Args    string  `json:"args"`
}

// HasContent reports whether the active command carries enough content to
// send: non-content-bearing commands always do, content-bearing ones need a
// non-empty argument.
func (a ActiveCommand) HasContent() bool {
	if !a.Command.ContentBearing {
		return true
	}
	return strings.TrimSpace(a.Args) != ""
}

// deriveCommand re-computes the active command from the composer text. An
// instant command, once set, sticks regardless of text; otherwise the text
// must start with "/name" for a known command. Unmatched text yields nil.
func deriveCommand(text string, set CommandSet, instant *ActiveCommand) *ActiveCommand {
	if instant != nil {
		cmd := *instant
		cmd.Args = text
		return &cmd
	}
	if set == nil || !strings.HasPrefix(text, "/") {
		return nil
	}
	rest := text[1:]
	name := rest
	args := ""
	if i := strings.IndexAny(rest, " \t\n"); i >= 0 {
		name = rest[:i]
		args = strings.TrimLeft(rest[i:], " \t\n")
	}
	cmd, ok := set.Lookup(strings.ToLower(name))
	if !ok {
		return nil
	}
	return &ActiveCommand{Command: cmd, Args: args}
}
