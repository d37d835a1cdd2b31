package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"csvqa/internal/config"
	"csvqa/internal/engine"
	"csvqa/internal/ingest"
	"csvqa/internal/logger"
	"csvqa/internal/metrics"
	"csvqa/internal/service"
	"csvqa/internal/tokenizer"
)

// quietAnnotation marks commands that own the terminal; their logs go to
// the configured file or nowhere.
const quietAnnotation = "quiet-logs"

// app holds the components shared by every subcommand.
type app struct {
	cfgPath  string
	logLevel string

	cfg     *config.AppConfig
	log     *logrus.Logger
	closer  io.Closer
	tok     *tokenizer.Tokenizer
	metrics *metrics.Metrics
	svc     *service.QAService
}

func newRootCmd() *cobra.Command {
	a := &app{}
	chat := newChatCmd(a)
	root := &cobra.Command{
		Use:   "csvqa [file]",
		Short: "Ask questions about a table",
		Long: `csvqa indexes the rows of a CSV, TSV, TXT or XLSX file with TF-IDF and
answers free-text questions with the most similar rows.`,
		Args:              cobra.MaximumNArgs(1),
		Annotations:       map[string]string{quietAnnotation: "true"},
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
		RunE:              chat.RunE,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to YAML or TOML config (default ./config.yaml or ~/.config/csvqa/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")
	root.AddCommand(chat, newAskCmd(a), newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.cfgPath == "" {
		a.cfg, _, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}

	var out io.Writer = cmd.ErrOrStderr()
	if cmd.Annotations[quietAnnotation] == "true" {
		out = io.Discard
	}
	a.log, a.closer, err = logger.New(a.cfg.Logging, out)
	if err != nil {
		return err
	}

	a.tok, err = tokenizer.New(tokenizer.Options{
		Pattern:        a.cfg.Tokenizer.Pattern,
		MinLength:      a.cfg.Tokenizer.MinLength,
		Stopwords:      a.cfg.Tokenizer.Stopwords,
		ExtraStopwords: a.cfg.Tokenizer.ExtraStopwords,
	})
	if err != nil {
		return err
	}

	a.metrics = metrics.New()
	e := engine.New(a.tok,
		engine.WithTopK(a.cfg.Retrieval.TopK),
		engine.WithLogger(logger.Component(a.log, "engine")),
		engine.WithMetrics(a.metrics),
	)
	a.svc = service.NewQAService(e, ingest.Options{
		Delimiter:   a.cfg.Ingest.Delimiter,
		ExcelHeader: a.cfg.Ingest.ExcelHeader,
	}, logger.Component(a.log, "service"))
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		a.closer.Close()
	}
}
