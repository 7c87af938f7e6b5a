// Package main provides the signer command-line tool for checking and re-signing published partitions.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"azsales/internal/formatter"
	"azsales/internal/validator"
	"azsales/internal/writer"
	"azsales/pkg/metadata"
)

var errUnsigned = errors.New("report has no metadata block to carry over")

func main() {
	dir := flag.String("dir", "", "Partition directory, e.g. data/2024/06/01")
	resign := flag.Bool("resign", false, "Re-align report tables and refresh the signature before checking")

	flag.Parse()

	if *dir == "" {
		fmt.Println("Usage: signer -dir <partition> [-resign]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *resign {
		if err := resignReport(filepath.Join(*dir, writer.ReportFile)); err != nil {
			fmt.Fprintf(os.Stderr, "resign failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("signed %s\n", filepath.Join(*dir, writer.ReportFile))
	}

	result := validator.NewPartitionValidator().ValidatePartition(*dir)

	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}

	fmt.Printf("files=%d rows=%d invalid_rows=%d\n", result.Stats.Files, result.Stats.Rows, result.Stats.InvalidRows)

	if !result.IsValid {
		os.Exit(1)
	}
}

// resignReport re-aligns a hand-edited report and signs it with its original metadata.
func resignReport(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	meta, clean := metadata.Extract(string(content))
	if meta == nil {
		return errUnsigned
	}

	signed := metadata.Sign(formatter.FormatMarkdown(clean), *meta)

	return writer.ReplaceFile(path, []byte(signed))
}
