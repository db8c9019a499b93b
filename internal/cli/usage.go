package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// CommandInfo describes one subcommand for help output.
type CommandInfo struct {
	Name        string
	Usage       string
	Description string
	Examples    []string
}

// Tool groups the subcommands of one binary.
type Tool struct {
	Name     string
	Summary  string
	Commands []CommandInfo
}

// Command looks up a subcommand by name.
func (t *Tool) Command(name string) (CommandInfo, bool) {
	for _, c := range t.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return CommandInfo{}, false
}

// PrintUsage writes the top-level help to w. The flags of global, if any, are
// written to the same writer.
func (t *Tool) PrintUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintf(w, "%s - %s\n\n", t.Name, t.Summary)
	fmt.Fprintf(w, "Usage:\n  %s [options] <command> [arguments]\n", t.Name)
	if len(t.Commands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		for _, c := range t.Commands {
			fmt.Fprintf(w, "  %-14s %s\n", c.Name, c.Description)
		}
	}
	if global != nil {
		fmt.Fprintf(w, "\nOptions:\n")
		printDefaults(w, global)
	}
	fmt.Fprintf(w, "\nRun '%s <command> -h' for details on a command.\n", t.Name)
}

// PrintCommandUsage writes the help of one subcommand to w. fs may be nil for
// commands without flags.
func (t *Tool) PrintCommandUsage(w io.Writer, cmd CommandInfo, fs *flag.FlagSet) {
	fmt.Fprintf(w, "%s %s - %s\n\n", t.Name, cmd.Name, cmd.Description)
	fmt.Fprintf(w, "Usage:\n  %s\n", cmd.Usage)
	if fs != nil && hasFlags(fs) {
		fmt.Fprintf(w, "\nOptions:\n")
		printDefaults(w, fs)
	}
	if len(cmd.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, ex := range cmd.Examples {
			fmt.Fprintf(w, "  %s\n", ex)
		}
	}
}

func printDefaults(w io.Writer, fs *flag.FlagSet) {
	prev := fs.Output()
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(prev)
}

func hasFlags(fs *flag.FlagSet) bool {
	n := 0
	fs.VisitAll(func(*flag.Flag) { n++ })
	return n > 0
}

// IsHelp reports whether args asks for help instead of running a command.
func IsHelp(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch strings.TrimLeft(args[0], "-") {
	case "h", "help":
		return strings.HasPrefix(args[0], "-")
	}
	return false
}

// ValidateArgs checks that cmd received between min and max positional
// arguments. max < 0 means no upper bound.
func ValidateArgs(cmd CommandInfo, args []string, min, max int) error {
	if len(args) >= min && (max < 0 || len(args) <= max) {
		return nil
	}
	return fmt.Errorf("%s: wrong number of arguments: %d\nusage: %s", cmd.Name, len(args), cmd.Usage)
}
