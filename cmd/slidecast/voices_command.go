package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidecast/internal/voices"
)

func newVoicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "voices",
		Short:       "List available narration voices",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := voices.Default()
			rows := make([][]string, 0, catalog.Len())
			for _, voice := range catalog.List() {
				rows = append(rows, []string{
					voice.ID,
					voice.LanguageName(),
					voice.Locale(),
					voice.Gender,
					voice.Description,
				})
			}
			table := renderTable(
				[]string{"Voice", "Language", "Locale", "Gender", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
