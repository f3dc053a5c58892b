package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/packsync/pkg/overrides"
	"github.com/agentstation/packsync/pkg/records"
	"github.com/agentstation/packsync/pkg/resolver"
)

// NewFilenameCommand creates the filename command.
func (a *App) NewFilenameCommand() *cobra.Command {
	var (
		skills []string
		id     string
	)
	cmd := &cobra.Command{
		Use:   "filename <type> <name...>",
		Short: "Print the documents a record name maps to",
		Long: `Print the store locations a reference record resolves to, without
looking at the store. With --id the override data is consulted first, as a
run would.`,
		Example: `  packsync filename Item "Aeon Stone (Dull Grey)"
  packsync filename Background Refugee --skill Society`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := records.ParseType(args[0])
			if err != nil {
				return err
			}
			fields := map[string]any{}
			if len(skills) > 0 {
				list := make([]any, len(skills))
				for i, s := range skills {
					list[i] = s
				}
				fields["skill"] = list
			}
			rec := records.Record{ID: id, Type: t, Name: strings.Join(args[1:], " "), Fields: fields}

			var reg *overrides.Registry
			if id != "" {
				if reg, err = overrides.Load(a.config.Overrides...); err != nil {
					return err
				}
			}
			locs, _ := resolver.New(nil, reg, nil).Candidates(rec)
			for _, loc := range locs {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), loc); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&skills, "skill", nil, "background skill tags")
	cmd.Flags().StringVar(&id, "id", "", "record id, to apply id overrides")
	return cmd
}
