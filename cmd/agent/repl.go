package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/session"
)

const replHelp = `Commands:
  exit, quit        leave the conversation (pending memories are saved)
  clear             forget the current conversation window
  users             list users known to the knowledge graph
  delete-user <id>  delete all memories for a user
  help              show this message
Anything else is sent to the agent.`

// runREPL drives the read-eval-print loop until EOF or an exit command.
func runREPL(in io.Reader, out io.Writer, s *session.Session, agentName string) error {
	fmt.Fprintf(out, "%s ready. Talking as %q. Type 'help' for commands.\n", agentName, s.Owner())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprintf(out, "\n%s> ", s.Owner())
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye.")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "exit", "quit":
			fmt.Fprintln(out, "Saving memories, goodbye.")
			if st := s.Stats(); st.Lost > 0 {
				fmt.Fprintf(out, "Note: %d memory write(s) could not be saved.\n", st.Lost)
			}
			return nil
		case "help":
			fmt.Fprintln(out, replHelp)
			continue
		case "clear":
			s.ClearHistory()
			fmt.Fprintln(out, "Conversation window cleared.")
			continue
		case "users":
			if err := printUsers(out, s); err != nil {
				fmt.Fprintln(out, "Could not list users:", err)
			}
			continue
		case "delete-user":
			arg = strings.TrimSpace(arg)
			if arg == "" {
				fmt.Fprintln(out, "Usage: delete-user <id>")
				continue
			}
			if err := validateUserID(arg); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := s.DeleteUser(arg); err != nil {
				fmt.Fprintln(out, "Could not delete user:", err)
				continue
			}
			fmt.Fprintf(out, "Deleted all memories for %q.\n", arg)
			if arg == s.Owner() {
				s.ClearHistory()
			}
			continue
		}

		reply, err := s.ProcessMessage(line)
		if err != nil {
			if errors.Is(err, core.ErrEmptyMessage) {
				continue
			}
			return err
		}
		fmt.Fprintf(out, "\n%s\n", reply)
	}
}

func printUsers(out io.Writer, s *session.Session) error {
	users, err := s.ListUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(out, "No users known yet.")
		return nil
	}
	fmt.Fprintln(out, "Known users:")
	for _, u := range users {
		fmt.Fprintf(out, "  - %s\n", u)
	}
	return nil
}
