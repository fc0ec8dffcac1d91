package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrSnakeDoc/smartmarks/internal/client"
)

const watchHelp = `commands:
  add <url> [title]   add a bookmark
  rm <id>             delete a bookmark
  ls                  print the list again
  quit                stop watching`

func newWatchCmd(v *viper.Viper) *cobra.Command {
	var resync time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the live bookmark list and edit it interactively",
		Long: `Keeps the bookmark list in sync with the server, including changes made
from other tabs and devices, and reads commands from stdin.

` + watchHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(cmd, v)
			if err != nil {
				return err
			}
			return watch(cmd.Context(), e, cmd.InOrStdin(), resync)
		},
	}
	cmd.Flags().DurationVar(&resync, "resync", time.Minute, "periodic full reload (0 disables)")
	return cmd
}

func watch(parent context.Context, e *env, in io.Reader, resync time.Duration) error {
	me, err := e.api.Me(parent)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s := client.NewSession(e.api, me, client.Options{ResyncInterval: resync, Logger: e.log})
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()
	defer func() {
		cancel()
		<-s.Done()
	}()

	select {
	case <-s.Ready():
	case err := <-runErr:
		return err
	}

	fmt.Fprintf(e.out, "watching bookmarks of %s on %s (type help for commands)\n",
		labelStyle.Render(me.Email), e.server)
	draw := func() {
		items, errMsg := s.Snapshot()
		fmt.Fprintln(e.out, mutedStyle.Render(strings.Repeat("─", 40)))
		renderList(e.out, items, errMsg)
	}

	lines := readLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			return err
		case <-s.Changes():
			draw()
		case line, ok := <-lines:
			if !ok {
				// stdin closed: keep watching until interrupted
				lines = nil
				continue
			}
			if quit := execute(ctx, e, s, line, draw); quit {
				return nil
			}
		}
	}
}

// execute runs one stdin command to completion before the next is read.
func execute(ctx context.Context, e *env, s *client.Session, line string, draw func()) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(e.out, watchHelp)
	case "ls", "list":
		draw()
	case "add":
		if len(fields) < 2 {
			fmt.Fprintln(e.out, "usage: add <url> [title]")
			return false
		}
		b, err := s.Add(ctx, fields[1], strings.Join(fields[2:], " "))
		if err != nil {
			fmt.Fprintln(e.out, errorStyle.Render(describe(err)))
			return false
		}
		fmt.Fprintf(e.out, "added %s\n", idStyle.Render(b.ID))
	case "rm", "delete":
		if len(fields) != 2 {
			fmt.Fprintln(e.out, "usage: rm <id>")
			return false
		}
		if err := s.Delete(ctx, fields[1]); err != nil {
			fmt.Fprintln(e.out, errorStyle.Render(describe(err)))
			return false
		}
		fmt.Fprintf(e.out, "deleted %s\n", idStyle.Render(fields[1]))
	default:
		fmt.Fprintf(e.out, "unknown command %q\n%s\n", fields[0], watchHelp)
	}
	return false
}

// readLines feeds lines from r until EOF or ctx ends. A Read blocked on
// an interactive terminal is only released at process exit.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
