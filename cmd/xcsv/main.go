// Package main provides the xcsv command-line interface.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	xcsv "github.com/TsubasaBE/go-xcsv"
	"github.com/TsubasaBE/go-xcsv/workbook"
)

var (
	outDir    string
	delimiter string
	dateFlag  string
	encoding  string
	sheetName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "xcsv",
		Short:         "Convert .xlsx workbooks to CSV",
		Long:          "xcsv converts Microsoft Excel .xlsx workbooks to CSV, one output file per worksheet, streaming row by row.",
		Version:       xcsv.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd := &cobra.Command{
		Use:   "list [input.xlsx]",
		Short: "List worksheet names in declaration order",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}

	exportCmd := &cobra.Command{
		Use:   "export [input.xlsx]",
		Short: "Convert worksheets to CSV files",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "Directory for the output CSV files")
	exportCmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "Column delimiter, e.g. ',' ';' or 'tab'")
	exportCmd.Flags().StringVar(&dateFlag, "dates", "auto", "Date detection: auto, styled, off")
	exportCmd.Flags().StringVar(&encoding, "encoding", "utf-8", "Output encoding (IANA name, e.g. windows-1252)")
	exportCmd.Flags().StringVar(&sheetName, "sheet", "", "Convert only the named sheet, to stdout")

	rootCmd.AddCommand(listCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "xcsv:", err)
		os.Exit(1)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	names, err := xcsv.ListSheets(args[0])
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions(delimiter, dateFlag, encoding)
	if err != nil {
		return err
	}

	wb, err := xcsv.Open(args[0])
	if err != nil {
		return err
	}
	defer wb.Close()

	if sheetName != "" {
		return xcsv.ExportSheet(wb, sheetName, cmd.OutOrStdout(), opts)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, d := range wb.Descriptors() {
		path := filepath.Join(outDir, xcsv.SheetFileName(d.Name))
		if err := exportOne(wb, d, path, opts); err != nil {
			return fmt.Errorf("sheet %q: %w", d.Name, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	}
	return nil
}

func exportOne(wb *workbook.Workbook, d workbook.SheetDescriptor, path string, opts xcsv.Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wb.ExportCSV(d, f, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// buildOptions translates the flag values into export options.
func buildOptions(delim, dates, enc string) (xcsv.Options, error) {
	var opts xcsv.Options

	switch delim {
	case "", ",":
		opts.Delimiter = ','
	case "tab", "\\t":
		opts.Delimiter = '\t'
	default:
		runes := []rune(delim)
		if len(runes) != 1 {
			return opts, fmt.Errorf("invalid delimiter %q: must be a single character or 'tab'", delim)
		}
		opts.Delimiter = runes[0]
	}

	switch dates {
	case "", "auto":
		opts.DateMode = xcsv.DateAuto
	case "styled":
		opts.DateMode = xcsv.DateStyled
	case "off":
		opts.DateMode = xcsv.DateOff
	default:
		return opts, fmt.Errorf("invalid date mode %q: must be auto, styled, or off", dates)
	}

	opts.Encoding = enc
	return opts, nil
}
