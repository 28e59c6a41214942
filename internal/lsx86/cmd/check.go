package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"lsx86/internal/hostcpu"
	"lsx86/internal/lsx86/styles"
)

// ErrIncompatible is returned by the check command when the host CPU lacks
// features the binary uses.
var ErrIncompatible = errors.New("binary uses instruction set extensions this CPU does not support")

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check BINARY",
		Short: "Check whether this CPU can run a binary",
		Long: `Check compares the instruction set extensions used by a binary with the
features of the running CPU and reports the x86-64 microarchitecture level
(v1 to v4) the binary requires.`,
		Example: `
# Check a binary against this machine
lsx86 check ./a.out
  `,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := newAnalyzer(args[0], workers)
			if err != nil {
				return err
			}
			total, err := a.Total(cmd.Context())
			if err != nil {
				return err
			}
			res := hostcpu.Check(total.Features())

			out := cmd.OutOrStdout()
			if asJSON {
				bts, err := json.Marshal(res)
				if err != nil {
					return fmt.Errorf("failed to marshal result: %w", err)
				}
				fmt.Fprintln(out, string(bts))
			} else {
				_, color := terminalWidth(out)
				writeCheck(out, res, color)
			}
			if !res.OK() {
				return ErrIncompatible
			}
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
	return cmd
}

func levelName(l int) string {
	if l <= 0 {
		return "not x86-64"
	}
	return fmt.Sprintf("x86-64-v%d", l)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func writeCheck(w io.Writer, r hostcpu.Result, color bool) {
	label := func(s string) string { return fmt.Sprintf("%-16s", s+":") }
	if color {
		st := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.VSCodeHeading))
		label = func(s string) string { return st.Render(fmt.Sprintf("%-16s", s+":")) }
	}
	if r.Brand != "" {
		fmt.Fprintf(w, "%s%s\n", label("CPU"), r.Brand)
	}
	fmt.Fprintf(w, "%s%s\n", label("Host level"), levelName(r.HostLevel))
	fmt.Fprintf(w, "%s%s\n", label("Required level"), levelName(r.RequiredLevel))
	fmt.Fprintf(w, "%s%s\n", label("Missing"), joinOrNone(r.Missing))
	fmt.Fprintf(w, "%s%s\n", label("Unchecked"), joinOrNone(r.Unchecked))
}
