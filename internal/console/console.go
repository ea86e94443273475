// Package console implements the interactive command loop: a registry of
// named commands plus pattern-matched input (bare time entries), with
// enable/disable toggles used by the calendar import workflow.
package console

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/blairfrandeen/titr/internal/calendar"
	"github.com/blairfrandeen/titr/internal/errors"
	"github.com/blairfrandeen/titr/internal/logger"
	"github.com/blairfrandeen/titr/internal/parser"
	"github.com/blairfrandeen/titr/internal/session"
	"github.com/blairfrandeen/titr/internal/storage"
)

// Command is one named console command. Aliases resolve to the same
// command; Hidden commands are omitted from help; Disabled commands
// acknowledge input without running and still satisfy break lists.
type Command struct {
	Name    string
	Aliases []string
	Summary string
	Help    string
	Hidden  bool
	Enabled bool
	Run     func(c *Console, args []string, kwargs map[string]string) error
}

// Pattern matches whole input lines before named dispatch is attempted.
type Pattern struct {
	Name  string
	Match func(line string) bool
	Run   func(c *Console, line string) error
}

// Console owns the input loop and the command registry.
type Console struct {
	Session *session.Session
	Store   *storage.Store
	Source  calendar.Source

	in  *bufio.Scanner
	out io.Writer

	commands []*Command
	aliases  map[string]*Command
	patterns []*Pattern
	history  []string

	// importCtx is non-nil only while iterating calendar suggestions;
	// it fills the gaps of partial or blank entries.
	importCtx *calendar.ImportContext
}

// New builds a console with the full command set registered.
func New(sess *session.Session, store *storage.Store, source calendar.Source, in io.Reader, out io.Writer) *Console {
	c := &Console{
		Session: sess,
		Store:   store,
		Source:  source,
		in:      bufio.NewScanner(in),
		out:     out,
		aliases: make(map[string]*Command),
	}
	c.patterns = []*Pattern{
		{Name: "add_entry", Match: parser.EntryPattern, Run: runAddEntry},
	}
	for _, cmd := range commandSet() {
		c.register(cmd)
	}
	return c
}

func (c *Console) register(cmd *Command) {
	c.commands = append(c.commands, cmd)
	c.aliases[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		c.aliases[alias] = cmd
	}
}

// Run reads and dispatches input until an executed command's name appears
// in breaks, returning that name. EOF behaves like quit.
func (c *Console) Run(prompt string, breaks []string) (string, error) {
	for {
		fmt.Fprint(c.out, prompt)
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return "quit", err
			}
			fmt.Fprintln(c.out)
			return "quit", nil
		}
		name, executed := c.dispatch(c.in.Text())
		if executed && inList(breaks, name) {
			return name, nil
		}
	}
}

// dispatch runs one input line: patterns first, then named commands.
// Errors are printed and swallowed so the loop keeps its prompt.
func (c *Console) dispatch(line string) (name string, executed bool) {
	for _, p := range c.patterns {
		if !p.Match(line) {
			continue
		}
		c.history = append(c.history, p.Name)
		if err := p.Run(c, line); err != nil {
			c.report(err)
		}
		return p.Name, true
	}

	fields := strings.Fields(line)
	first := ""
	if len(fields) > 0 {
		first = fields[0]
	}
	cmd, ok := c.aliases[first]
	if !ok {
		fmt.Fprintln(c.out, "Command not recognized. Type 'h' for help or 'q' to quit.")
		return "", false
	}
	c.history = append(c.history, cmd.Name)
	if !cmd.Enabled {
		fmt.Fprintln(c.out, "Disabled.")
		return cmd.Name, true
	}
	var rest []string
	if len(fields) > 1 {
		rest = fields[1:]
	}
	args, kwargs := splitKwargs(rest)
	if err := cmd.Run(c, args, kwargs); err != nil {
		c.report(err)
	}
	return cmd.Name, true
}

func (c *Console) report(err error) {
	if !errors.IsInput(err) {
		logger.Error("Command failed", "err", err)
	}
	fmt.Fprintln(c.out, errors.Format(err))
}

// SetEntryPattern swaps the matcher for bare time-entry lines. The import
// workflow widens it so a blank line accepts a suggestion as-is.
func (c *Console) SetEntryPattern(match func(string) bool) {
	for _, p := range c.patterns {
		if p.Name == "add_entry" {
			p.Match = match
		}
	}
}

// Enable re-enables a command and lists it in help again.
func (c *Console) Enable(name string) {
	if cmd, ok := c.aliases[name]; ok {
		cmd.Enabled = true
		cmd.Hidden = false
	}
}

// Disable keeps a command reachable but inert: it prints an
// acknowledgement instead of running, and disappears from help.
func (c *Console) Disable(name string) {
	if cmd, ok := c.aliases[name]; ok {
		cmd.Enabled = false
		cmd.Hidden = true
	}
}

// splitKwargs separates key=value tokens from positional arguments.
func splitKwargs(tokens []string) (args []string, kwargs map[string]string) {
	kwargs = make(map[string]string)
	for _, tok := range tokens {
		if k, v, ok := strings.Cut(tok, "="); ok && k != "" {
			kwargs[k] = v
			continue
		}
		args = append(args, tok)
	}
	return args, kwargs
}

func inList(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func sortedCommands(commands []*Command) []*Command {
	out := make([]*Command, len(commands))
	copy(out, commands)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
