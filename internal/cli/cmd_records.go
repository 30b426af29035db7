package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"datadesk/internal/app"
	"datadesk/internal/domain"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Load and change records from the command line",
}

var flagListJSON bool

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Load the records once and print them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(func(core *app.Core) error {
			records, err := core.Records.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("load records: %w", err)
			}
			if flagListJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}
			return printTable(cmd.OutOrStdout(), records)
		})
	},
}

var recordsCreateCmd = &cobra.Command{
	Use:   "create <json>",
	Short: "Create a record",
	Example: `  datadesk records create '{"name":"Plant C","capacity":40}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := parseRecord(args[0])
		if err != nil {
			return err
		}
		return withCore(func(core *app.Core) error {
			if _, err := core.Records.Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("load records: %w", err)
			}
			saved, err := core.Records.Create(cmd.Context(), rec)
			if err != nil {
				return fmt.Errorf("create record: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), saved)
		})
	},
}

var recordsUpdateCmd = &cobra.Command{
	Use:   "update <index> <json>",
	Short: "Merge fields into the record at index",
	Example: `  datadesk records update 0 '{"capacity":15}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		patch, err := parseRecord(args[1])
		if err != nil {
			return err
		}
		return withCore(func(core *app.Core) error {
			if _, err := core.Records.Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("load records: %w", err)
			}
			saved, err := core.Records.Update(cmd.Context(), index, patch)
			if err != nil {
				return fmt.Errorf("update record %d: %w", index, err)
			}
			return printJSON(cmd.OutOrStdout(), saved)
		})
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <index>",
	Short: "Delete the record at index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return withCore(func(core *app.Core) error {
			if _, err := core.Records.Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("load records: %w", err)
			}
			if err := core.Records.Delete(cmd.Context(), index); err != nil {
				return fmt.Errorf("delete record %d: %w", index, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record %d deleted\n", index)
			return nil
		})
	},
}

func init() {
	recordsListCmd.Flags().BoolVar(&flagListJSON, "json", false, "print records as JSON")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsCreateCmd)
	recordsCmd.AddCommand(recordsUpdateCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
}

func parseRecord(s string) (domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return domain.Record{}, fmt.Errorf("record must be a JSON object: %w", err)
	}
	return rec, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q (expected a non-negative integer)", s)
	}
	return i, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

const maxCellWidth = 40

// printTable writes records as aligned columns headed by their labels.
func printTable(w io.Writer, records []domain.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return nil
	}
	columns := domain.Columns(records, domain.SystemFields)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"#"}
	rule := []string{"-"}
	for _, c := range columns {
		label := strings.ToUpper(domain.Label(c))
		header = append(header, label)
		rule = append(rule, strings.Repeat("-", len(label)))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	for i, rec := range records {
		row := []string{strconv.Itoa(i)}
		for _, c := range columns {
			row = append(row, truncate(oneLine(rec.Text(c)), maxCellWidth))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
