package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/config"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/discoverylog"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/maint"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Interactive maintenance menu (count, search, dedupe, purge)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Paths.DatabaseFile)
		if err != nil {
			return err
		}
		defer st.Close()

		engine := maint.NewEngine(st, discoverylog.New(cfg.Paths.DiscoveryLog))
		return runToolsMenu(engine, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

const toolsMenu = `
 1) count tracked users
 2) search user by id or name
 3) check database for duplicates
 4) check discovery log for duplicates
 5) remove database duplicates
 6) remove discovery log duplicates
 7) purge a server
 8) exit
`

// runToolsMenu drives the maintenance loop. Destructive choices ask for
// the literal confirmation token and pass whatever was typed straight
// through to the engine, which enforces it.
func runToolsMenu(engine *maint.Engine, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	for {
		fmt.Fprint(out, toolsMenu)
		choice, err := prompt(r, out, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch choice {
		case "1":
			n, err := engine.CountIdentities()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "tracked users: %d\n", n)

		case "2":
			query, err := prompt(r, out, "id or name: ")
			if err != nil {
				return err
			}
			matches, err := engine.Search(query)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(out, "no matches")
				continue
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%s (%s) in %s\n", m.DisplayName, m.ID, strings.Join(m.Groups, ", "))
			}

		case "3":
			ids, err := engine.StoreDuplicates()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(out, "no duplicates in database")
				continue
			}
			fmt.Fprintf(out, "duplicate ids: %s\n", strings.Join(ids, ", "))

		case "4":
			dups, err := engine.LogDuplicates()
			if err != nil {
				return err
			}
			if len(dups) == 0 {
				fmt.Fprintln(out, "no duplicates in discovery log")
				continue
			}
			for _, d := range dups {
				fmt.Fprintf(out, "%s appears %d times\n", d.IdentityID, d.Count)
			}

		case "5":
			confirm, err := prompt(r, out, confirmPrompt("remove database duplicates"))
			if err != nil {
				return err
			}
			n, err := engine.RemoveStoreDuplicates(confirm)
			if reportMaintResult(out, err) {
				fmt.Fprintf(out, "removed %d rows\n", n)
			}

		case "6":
			confirm, err := prompt(r, out, confirmPrompt("rewrite the discovery log"))
			if err != nil {
				return err
			}
			n, err := engine.RemoveLogDuplicates(confirm)
			if reportMaintResult(out, err) {
				fmt.Fprintf(out, "removed %d lines\n", n)
			}

		case "7":
			groupID, err := prompt(r, out, "server id: ")
			if err != nil {
				return err
			}
			confirm, err := prompt(r, out, confirmPrompt("purge server "+groupID))
			if err != nil {
				return err
			}
			res, err := engine.PurgeGroup(groupID, confirm)
			if reportMaintResult(out, err) {
				fmt.Fprintf(out, "removed %d memberships and %d users\n",
					res.MembershipsRemoved, res.IdentitiesRemoved)
			}

		case "8", "q", "quit", "exit":
			return nil

		default:
			fmt.Fprintln(out, "unknown choice")
		}
	}
}

func confirmPrompt(what string) string {
	return fmt.Sprintf("type %s to %s: ", maint.ConfirmToken, what)
}

// reportMaintResult prints a refusal instead of failing the whole menu
// when the operator did not confirm. Returns true when the operation ran.
func reportMaintResult(out io.Writer, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, maint.ErrNotConfirmed):
		fmt.Fprintln(out, color.YellowString("not confirmed, nothing changed"))
		return false
	default:
		fmt.Fprintln(out, color.RedString("error: %v", err))
		return false
	}
}

func prompt(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := r.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
