package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"csvqa/internal/service"
)

type askResult struct {
	Rank  int     `json:"rank"`
	ID    int     `json:"id"`
	Key   string  `json:"key"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func newAskCmd(a *app) *cobra.Command {
	var (
		file   string
		k      int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask --file <table> question...",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			if _, err := a.svc.LoadFile(file); err != nil {
				return errors.New(service.UserMessage(err))
			}
			question := strings.Join(args, " ")
			matches, err := a.svc.Query(question, k)
			if err != nil {
				return fmt.Errorf("answering question: %w", err)
			}

			if !asJSON {
				cmd.Print(service.FormatMatches(matches))
				return nil
			}
			out := make([]askResult, len(matches))
			for i, m := range matches {
				out[i] = askResult{Rank: i + 1, ID: m.Doc.ID, Key: m.Doc.Key, Score: m.Score, Text: m.Doc.Text}
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal results: %w", err)
			}
			cmd.Println(string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "table to index")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of rows to return (default retrieval.top_k)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}
