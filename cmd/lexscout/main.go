package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/config"
	"github.com/blockedby/lexscout/internal/llm"
	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/research"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// researcher is the part of research.Service the commands use.
type researcher interface {
	Catalog() *catalog.Catalog
	Search(ctx context.Context, q models.Query) (*models.Result, error)
	Translate(ctx context.Context, text, language string) (string, error)
}

type globalFlags struct {
	format  string
	timeout time.Duration
}

type searchFlags struct {
	country   string
	language  string
	authority string
	from      string
	to        string
	include   string
	exclude   string
}

func main() {
	root := newRootCmd(os.Stdout, newService)
	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			}
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// newService builds the research service from the environment. A missing
// API key is reported before any request is attempted.
func newService(ctx context.Context) (researcher, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		if cat, err = catalog.Load(cfg.CatalogFile); err != nil {
			return nil, err
		}
	}

	provider, err := llm.New(ctx, llm.Config{
		Provider:    cfg.LLMProvider,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: float32(cfg.LLMTemperature),
		Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
	})
	if err != nil && !errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, err
	}
	return research.NewService(research.Dependencies{Provider: provider, Catalog: cat})
}

func newRootCmd(out io.Writer, build func(context.Context) (researcher, error)) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "lexscout",
		Short:         "Search laws, regulations and government policies",
		Long:          "LexScout asks a language model with web search for laws, regulations and government policies of a country and prints structured results with their sources.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.format, "format", "text", "Output format: text or json")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 3*time.Minute, "Give up after this long")

	root.AddCommand(
		searchCmd(models.KindLaw, &g, out, build),
		searchCmd(models.KindPolicy, &g, out, build),
		translateCmd(&g, out, build),
		countriesCmd(&g, out, build),
	)
	return root
}

func searchCmd(kind models.Kind, g *globalFlags, out io.Writer, build func(context.Context) (researcher, error)) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(g.format); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()

			svc, err := build(ctx)
			if err != nil {
				return codeError(1, "%s", err)
			}

			q := models.Query{
				Kind:     kind,
				Text:     strings.Join(args, " "),
				Country:  f.country,
				Language: f.language,
			}
			if q.Country == "" {
				q.Country = svc.Catalog().DefaultCountry
			}
			if kind == models.KindLaw {
				q.RegulationFilters = &models.RegulationFilters{CompetentAuthority: f.authority, DateFrom: f.from, DateTo: f.to}
			} else {
				q.PolicyFilters = &models.PolicyFilters{DateFrom: f.from, DateTo: f.to, IncludeKeywords: f.include, ExcludeKeywords: f.exclude}
			}

			res, err := svc.Search(ctx, q)
			if err != nil {
				return codeError(1, "%s", err)
			}
			if err := printResult(out, g.format, res); err != nil {
				return codeError(1, "%s", err)
			}
			if res.Outcome != models.OutcomeSuccess {
				return codeError(2, "")
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.country, "country", "", "Country to search (default: the catalog default)")
	fl.StringVar(&f.language, "language", "", "Response language (default: the country's first language)")
	fl.StringVar(&f.from, "from", "", "Earliest date, YYYY-MM-DD")
	fl.StringVar(&f.to, "to", "", "Latest date, YYYY-MM-DD")

	if kind == models.KindLaw {
		cmd.Use = "law <query>"
		cmd.Short = "Search laws and regulations"
		fl.StringVar(&f.authority, "authority", "", "Only regulations administered by this authority")
	} else {
		cmd.Use = "policy <query>"
		cmd.Short = "Search government policies"
		fl.StringVar(&f.include, "include", "", "Keywords results must relate to")
		fl.StringVar(&f.exclude, "exclude", "", "Keywords to exclude")
	}
	return cmd
}

func translateCmd(g *globalFlags, out io.Writer, build func(context.Context) (researcher, error)) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text into one of the translation languages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(g.format); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()

			svc, err := build(ctx)
			if err != nil {
				return codeError(1, "%s", err)
			}
			text, err := svc.Translate(ctx, strings.Join(args, " "), to)
			if err != nil {
				return codeError(1, "%s", err)
			}
			if g.format == "json" {
				return writeJSON(out, map[string]string{"language": to, "text": text})
			}
			_, err = fmt.Fprintln(out, text)
			return err
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target language")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func countriesCmd(g *globalFlags, out io.Writer, build func(context.Context) (researcher, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List countries and their response languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(g.format); err != nil {
				return err
			}
			svc, err := build(cmd.Context())
			if err != nil {
				return codeError(1, "%s", err)
			}
			cat := svc.Catalog()
			if g.format == "json" {
				return writeJSON(out, cat)
			}
			for _, c := range cat.CountryList {
				marker := " "
				if c.Name == cat.DefaultCountry {
					marker = "*"
				}
				langs := strings.Join(c.Languages, ", ")
				if langs == "" {
					langs = "(no response languages)"
				}
				fmt.Fprintf(out, "%s %-20s %s\n", marker, c.Name, langs)
			}
			fmt.Fprintf(out, "\nTranslation languages: %s\n", strings.Join(cat.TranslationLanguages, ", "))
			return nil
		},
	}
}

func checkFormat(format string) error {
	if format != "text" && format != "json" {
		return codeError(1, "unknown format %q: use text or json", format)
	}
	return nil
}
