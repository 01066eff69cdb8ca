package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/vxlanevpn/reconciler/pkg/statestore"
)

var showQuery string

func init() {
	showCmd.Flags().StringVarP(&showQuery, "query", "q", "", "jq expression to filter the printed record, e.g. '.config.VlanMapVNIList'")
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the last persisted reconciliation record",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := statestore.New(app.stateDir)
		rec, err := store.Load()
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Println("no prior reconciliation state found")
			return nil
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling state record: %w", err)
		}

		if showQuery == "" {
			pretty, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(pretty))
			return nil
		}
		return printQueried(data, showQuery)
	},
}

func printQueried(data []byte, expr string) error {
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("decoding record for query: %w", err)
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}

	iter := query.Run(input)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("jq: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}
