package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ytthumbs/internal/bootstrap"
	"ytthumbs/internal/domain"
	"ytthumbs/internal/domain/style"
	"ytthumbs/internal/infra"
)

type refList []string

func (r *refList) String() string { return strings.Join(*r, ",") }

func (r *refList) Set(v string) error {
	*r = append(*r, v)
	return nil
}

type output struct {
	GenerationID  string                  `json:"generation_id"`
	TaskID        string                  `json:"task_id"`
	RefinedPrompt string                  `json:"refined_prompt"`
	Refined       bool                    `json:"refined"`
	SourceURLs    []string                `json:"source_urls"`
	Thumbnails    []domain.GeneratedAsset `json:"thumbnails"`
	Failures      []failure               `json:"failures,omitempty"`
}

type failure struct {
	Variant string `json:"variant"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	_ = godotenv.Load()

	var (
		promptFlag   string
		styleFlag    string
		variantsFlag int
		refs         refList
	)
	flag.StringVar(&promptFlag, "prompt", "", "thumbnail description")
	flag.StringVar(&styleFlag, "style", "", "style preset, free text, or a JSON style object")
	flag.IntVar(&variantsFlag, "variants", 0, "number of variants to persist (overrides GENERATION_VARIANTS)")
	flag.Var(&refs, "ref", "reference image url (repeatable)")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if variantsFlag > 0 {
		cfg.Variants = variantsFlag
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "generate").Logger()

	desc, err := parseStyle(styleFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid style: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble pipeline")
	}
	defer svc.Close()

	res, err := svc.Orchestrator.Generate(ctx, domain.GenerationRequest{
		Prompt:          promptFlag,
		Style:           desc.Describe(),
		ReferenceImages: refs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", domain.CodeOf(err), domain.DetailOf(err))
		logger.Debug().Err(err).Msg("generation failed")
		os.Exit(1)
	}

	out := output{
		GenerationID:  res.GenerationID,
		TaskID:        res.Task.ID,
		RefinedPrompt: res.RefinedPrompt.Text,
		Refined:       res.RefinedPrompt.Refined,
		SourceURLs:    res.SourceURLs,
		Thumbnails:    res.Assets,
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, failure{
			Variant: domain.VariantLabel(f.VariantIndex),
			Code:    domain.CodeOf(f.Err),
			Message: domain.DetailOf(f.Err),
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func parseStyle(raw string) (style.Descriptor, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		return style.Parse(json.RawMessage(raw))
	}
	d := style.FromText(raw)
	d.Normalize()
	return d, d.Validate()
}
