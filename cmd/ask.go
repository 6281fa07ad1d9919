package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mohammad-safakhou/aisearch/internal/runtime"
	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func askCMD(root *rootOptions) *cobra.Command {
	var language string
	var asJSON bool
	ask := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and print the result",
		Long:  "Answer one question. Without an argument the question is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if language == "" {
				language = cfg.General.DefaultLanguage
			}
			lang, err := models.ParseLanguage(language)
			if err != nil {
				return err
			}
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				if query, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			tel, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{ServiceVersion: Version})
			if err != nil {
				return err
			}
			defer func() {
				if err := tel.Shutdown(ctx); err != nil {
					log.Warn("telemetry shutdown", zap.Error(err))
				}
			}()

			p, err := buildPipeline(ctx, cfg, log)
			if err != nil {
				return err
			}
			res, runErr := p.Run(ctx, query, lang)
			out := cmd.OutOrStdout()
			if asJSON {
				if err := renderJSON(out, res); err != nil {
					return err
				}
			} else {
				renderRun(out, res)
			}
			return runErr
		},
	}
	ask.Flags().StringVarP(&language, "language", "l", "", "answer language: auto, cs, en or sk")
	ask.Flags().BoolVar(&asJSON, "json", false, "print the run result as JSON")
	return ask
}

func prompt(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your search query: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read query: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no query given")
	}
	return line, nil
}
