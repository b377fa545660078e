package formatter

import "fmt"

// ShowOptions selects which entry kinds and details the formatter renders.
type ShowOptions struct {
	Users       bool
	Assistants  bool
	Tools       bool
	Summaries   bool
	System      bool
	Metadata    bool
	ToolDetails bool
	NoTruncate  bool
	Unknown     bool
}

// DefaultShowOptions shows the conversation itself: user messages, assistant
// messages and tool executions.
func DefaultShowOptions() ShowOptions {
	return ShowOptions{Users: true, Assistants: true, Tools: true}
}

// ParseShowFlags applies single-letter show flags on top of the defaults.
// Lowercase enables, uppercase disables; 'a' enables everything and 'A'
// starts from nothing, both applied in the order given.
func ParseShowFlags(flags string) (ShowOptions, error) {
	opts := DefaultShowOptions()

	for _, flag := range flags {
		enable := true
		switch flag {
		case 'a':
			opts = ShowOptions{Users: true, Assistants: true, Tools: true, Summaries: true, System: true, Metadata: true, ToolDetails: true, NoTruncate: true, Unknown: true}
			continue
		case 'A':
			opts = ShowOptions{}
			continue
		case 'Q', 'W', 'O', 'S', 'Y', 'M', 'T', 'U', 'K':
			enable = false
			flag += 'a' - 'A'
		}

		switch flag {
		case 'q':
			opts.Users = enable
		case 'w':
			opts.Assistants = enable
		case 'o':
			opts.Tools = enable
		case 's':
			opts.Summaries = enable
		case 'y':
			opts.System = enable
		case 'm':
			opts.Metadata = enable
		case 't':
			opts.ToolDetails = enable
		case 'u':
			opts.NoTruncate = enable
		case 'k':
			opts.Unknown = enable
		default:
			return opts, fmt.Errorf("unknown show flag %q", string(flag))
		}
	}

	return opts, nil
}
