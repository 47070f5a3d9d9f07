package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the stages and the responder handling each",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := coach.New()
		handlers := make(map[domain.Stage][]string)
		for _, r := range eng.Responders() {
			for _, s := range r.Stages {
				handlers[s] = append(handlers[s], r.Name)
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSTAGE\tCRITICAL\tRESPONDER")
		for _, s := range domain.AllStages() {
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", int(s)+1, s.Title(), s.IsCritical(), strings.Join(handlers[s], ", "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
