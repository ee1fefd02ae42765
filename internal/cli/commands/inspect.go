package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	tmpl "serialgen/pkg/numerator"
)

func inspectCmd() *cobra.Command {
	var (
		prefix    string
		seqLength int
		seq       uint64
	)

	cmd := &cobra.Command{
		Use:   "inspect <format>",
		Short: "List the placeholders of a template and render a sample",
		Example: `  numctl inspect 'TEST-{year}-{SEQ:4}' --seq 123`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]
			out := cmd.OutOrStdout()

			for _, p := range tmpl.Placeholders(format) {
				status := "passed through"
				switch p.Name {
				case tmpl.NamePrefix, tmpl.NameYear, tmpl.NameSeq:
					status = "recognised"
				}
				if p.HasWidth() {
					fmt.Fprintf(out, "%-12s name=%s width=%d %s\n", p.Raw, p.Name, p.Width, status)
				} else {
					fmt.Fprintf(out, "%-12s name=%s %s\n", p.Raw, p.Name, status)
				}
			}

			sample, err := tmpl.Render(format, tmpl.Fields{
				Prefix:    prefix,
				Year:      time.Now().UTC().Year(),
				Seq:       seq,
				SeqLength: seqLength,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "sample: %s\n", sample)
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "PREFIX", "prefix used in the sample")
	cmd.Flags().IntVarP(&seqLength, "seq-length", "l", 6, "default {SEQ} width")
	cmd.Flags().Uint64Var(&seq, "seq", 1, "sequence value used in the sample")

	return cmd
}
