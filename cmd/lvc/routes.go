package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitalvas/lvc/routing"
)

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Work with regex route tables",
	}

	cmd.AddCommand(newRoutesCheckCmd(), newRoutesMatchCmd(), newRoutesFmtCmd())
	return cmd
}

// loadTable reads the table at path, or the built-in table for an empty
// path.
func loadTable(path string) (routing.Table, error) {
	if path == "" {
		return routing.DefaultTable(), nil
	}
	return routing.LoadTable(path)
}

func newRoutesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file...]",
		Short: "Compile route tables and report errors",
		Long:  `Loads every route table and compiles its patterns. Without arguments the built-in table is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{""}
			}

			var failed int
			for _, path := range args {
				name := path
				if name == "" {
					name = "(default)"
				}

				table, err := loadTable(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d routes ok\n", name, len(table))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d route tables failed", failed, len(args))
			}
			return nil
		},
	}
}

func newRoutesMatchCmd() *cobra.Command {
	var routesFile string

	cmd := &cobra.Command{
		Use:   "match path...",
		Short: "Show how paths are routed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(routesFile)
			if err != nil {
				return err
			}

			router, err := routing.NewRegexRouter(table)
			if err != nil {
				return err
			}

			for _, path := range args {
				res, ok := router.Match(path)
				writeResult(cmd.OutOrStdout(), path, res, ok)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&routesFile, "routes", "r", "", "route table file (default: built-in table)")
	return cmd
}

func writeResult(w io.Writer, path string, res routing.Result, ok bool) {
	switch {
	case !ok:
		fmt.Fprintf(w, "%s: no match\n", path)
	case res.IsRedirect():
		fmt.Fprintf(w, "%s: redirect %d %s (%s)\n", path, res.Status, res.Redirect, res.Route.Pattern)
	default:
		var params []string
		for _, k := range res.Params.Keys() {
			params = append(params, fmt.Sprintf("%s=%v", k, res.Params.Value(k)))
		}
		fmt.Fprintf(w, "%s: %s/%s [%s] (%s)\n", path, res.Controller, res.Action, strings.Join(params, " "), res.Route.Pattern)
	}
}

func newRoutesFmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt file",
		Short: "Rewrite a route table in canonical mapping form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			table, err := routing.LoadTable(path)
			if err != nil {
				return err
			}

			out, err := table.Marshal()
			if err != nil {
				return err
			}

			if !write {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			current, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if bytes.Equal(current, out) {
				return nil
			}

			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			return os.WriteFile(path, out, info.Mode().Perm())
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	return cmd
}
