// Command pdftranslate translates PDF documents.
//
// Usage:
//
//	pdftranslate [preserve] [flags] <input.pdf> [output.pdf]
//	pdftranslate extract   [flags] <input.pdf> [output.txt]
//	pdftranslate translate [flags] <input.pdf> [output.txt]
//	pdftranslate convert   [flags] <input.pdf> [output.pdf]
//	pdftranslate batch     [flags] <input-dir> [output-dir]
//	pdftranslate check     <original.pdf> <translated.pdf>
//
// preserve redraws each translated unit inside its original region,
// keeping the page layout. extract prints the document text, translate
// prints the translated text, and convert writes a fresh text-only
// document. batch runs preserve over every PDF in a directory, and
// check compares the page counts of a finished pair. Without a known
// subcommand the input is run through preserve.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pdf-translator/internal/config"
	"pdf-translator/internal/document"
	"pdf-translator/internal/emitter"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/pipeline"
	"pdf-translator/internal/schedule"
	"pdf-translator/internal/translate"
	"pdf-translator/internal/types"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "preserve", "extract", "translate", "convert", "batch", "check":
	case "help", "-h", "-help", "--help":
		usage()
		return 0
	default:
		cmd, rest = "preserve", args
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	src := fs.String("src", "", `source language code ("auto" detects)`)
	tgt := fs.String("tgt", "", "target language code")
	gran := fs.String("granularity", "", "unit granularity: block, line, or span")
	conc := fs.Int("concurrency", 0, "units translated in parallel")
	fs.Parse(rest)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: pdftranslate %s [flags] %s\n", cmd, argsHint(cmd))
		return 1
	}
	input := fs.Arg(0)
	if _, err := os.Stat(input); err != nil {
		if cmd == "batch" {
			fmt.Printf("Error: directory not found: %s\n", input)
		} else {
			fmt.Printf("Error: PDF not found: %s\n", input)
		}
		return 1
	}

	mgr, err := setup()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer logger.Close()

	inv := invocation{
		mgr:         mgr,
		src:         *src,
		tgt:         *tgt,
		concurrency: *conc,
		input:       input,
		output:      fs.Arg(1),
	}
	if inv.src == "" {
		inv.src = mgr.GetSourceLang()
	}
	if inv.tgt == "" {
		inv.tgt = mgr.GetTargetLang()
	}
	if *gran != "" {
		inv.granularity = types.ParseGranularity(*gran)
	} else {
		inv.granularity = mgr.GetGranularity()
	}
	if inv.concurrency <= 0 {
		inv.concurrency = mgr.GetConcurrency()
	}

	ctx := context.Background()
	switch cmd {
	case "extract":
		return cmdExtract(inv)
	case "translate":
		return cmdTranslate(ctx, inv)
	case "convert":
		return cmdConvert(ctx, inv)
	case "batch":
		return cmdBatch(ctx, inv)
	case "check":
		return cmdCheck(inv)
	default:
		return cmdPreserve(ctx, inv)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: pdftranslate <command> [flags] <input.pdf> [output]

Commands:
  preserve   translate in place, keeping the page layout (default)
  extract    print the document text
  translate  print the translated text
  convert    write a text-only translated PDF
  batch      run preserve over every PDF in a directory
  check      compare the page counts of an original and its translation

Flags:
  -src code       source language code ("auto" detects)
  -tgt code       target language code
  -granularity g  unit granularity for preserve: block, line, or span
  -concurrency n  units translated in parallel (preserve)

Running without a command translates the input with preserve.`)
}

// argsHint names the positional arguments a command expects.
func argsHint(cmd string) string {
	switch cmd {
	case "batch":
		return "<input-dir> [output-dir]"
	case "check":
		return "<original.pdf> <translated.pdf>"
	default:
		return "<input.pdf> [output]"
	}
}

// setup loads .env and the config file, then initializes logging. The
// CLI logs to file only; stdout carries the human-readable output.
func setup() (*config.ConfigManager, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	mgr, err := config.NewConfigManager("")
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(); err != nil {
		return nil, err
	}

	cfg := mgr.GetConfig()
	logCfg := logger.DefaultConfig()
	if cfg.LogFile != "" {
		logCfg.LogFilePath = cfg.LogFile
	}
	if cfg.LogLevel != "" {
		logCfg.Level = cfg.LogLevel
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}
	return mgr, nil
}

// invocation carries one command's resolved settings: flag values where
// given, config values otherwise.
type invocation struct {
	mgr         *config.ConfigManager
	src, tgt    string
	granularity types.Granularity
	concurrency int
	input       string
	output      string
}

func (inv invocation) service(ctx context.Context) (*translate.Service, error) {
	providers, err := translate.BuildChain(ctx, translate.ChainConfig{
		SourceLang:    inv.src,
		TargetLang:    inv.tgt,
		OpenAIAPIKey:  inv.mgr.GetAPIKey(),
		OpenAIBaseURL: inv.mgr.GetBaseURL(),
		OpenAIModel:   inv.mgr.GetModel(),
		SelfHostedURL: inv.mgr.GetSelfHostedURL(),
	})
	if err != nil {
		return nil, err
	}
	return translate.NewService(providers, inv.mgr.GetMaxRetries(), inv.mgr.GetBackoffBase()), nil
}

func (inv invocation) newEmitter(translate schedule.TranslateFunc) *emitter.Emitter {
	return emitter.New(translate, emitter.Options{
		MaxChunkChars: inv.mgr.GetMaxChunkChars(),
		OCRFallback:   inv.mgr.OCREnabled(),
		OCRLanguage:   inv.src,
	})
}

func cmdPreserve(ctx context.Context, inv invocation) int {
	output := inv.output
	if output == "" {
		output = outputFor(inv.input, inv.tgt+".pdf")
	}

	fmt.Printf("Input:     %s\n", inv.input)
	fmt.Printf("Output:    %s\n", output)
	fmt.Printf("Languages: %s -> %s\n", inv.src, inv.tgt)
	fmt.Println()

	svc, err := inv.service(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	total, err := document.PageCount(inv.input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	p := pipeline.New(svc.Translate, pipeline.Options{
		Granularity:   inv.granularity,
		Concurrency:   inv.concurrency,
		MaxChunkChars: inv.mgr.GetMaxChunkChars(),
		MinFontSize:   inv.mgr.GetMinFontSize(),
		Progress:      progressPrinter(total),
	})
	result, err := p.Run(ctx, inv.input, output)
	fmt.Println()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	fmt.Printf("\n=== Translation Complete ===\n")
	fmt.Printf("Pages:     %d (skipped %d)\n", result.Pages, result.PagesSkipped)
	fmt.Printf("Units:     %d (failed %d, truncated %d)\n",
		result.Units, result.UnitsFailed, result.UnitsTruncated)
	fmt.Printf("Duration:  %.1fs\n", float64(result.DurationMS)/1000.0)
	fmt.Printf("Output:    %s\n", result.OutputPath)
	return 0
}

func cmdExtract(inv invocation) int {
	em := inv.newEmitter(nil)
	text, err := em.Extract(inv.input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	return deliverText(text, inv.output)
}

func cmdTranslate(ctx context.Context, inv invocation) int {
	svc, err := inv.service(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	em := inv.newEmitter(svc.Translate)
	text, err := em.Extract(inv.input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if strings.TrimSpace(text) == "" {
		return 0
	}
	translated, err := em.Translate(ctx, text)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	return deliverText(translated, inv.output)
}

func cmdConvert(ctx context.Context, inv invocation) int {
	output := inv.output
	if output == "" {
		output = outputFor(inv.input, inv.tgt+"_text.pdf")
	}

	svc, err := inv.service(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	em := inv.newEmitter(svc.Translate)
	text, err := em.Extract(inv.input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if strings.TrimSpace(text) == "" {
		fmt.Println("No text extracted from the PDF.")
		return 2
	}
	translated, err := em.Translate(ctx, text)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if err := em.Convert(translated, output); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Saved: %s\n", output)
	return 0
}

func cmdCheck(inv invocation) int {
	translated := inv.output
	if translated == "" {
		fmt.Fprintln(os.Stderr, "Usage: pdftranslate check <original.pdf> <translated.pdf>")
		return 1
	}
	if _, err := os.Stat(translated); err != nil {
		fmt.Printf("Error: PDF not found: %s\n", translated)
		return 1
	}

	fmt.Printf("Checking translated output...\n")
	fmt.Printf("  Original:   %s\n", inv.input)
	fmt.Printf("  Translated: %s\n\n", translated)

	report, err := pipeline.ComparePageCounts(inv.input, translated)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	fmt.Printf("Pages: %d -> %d\n", report.InputPages, report.OutputPages)
	if report.Difference > 0 {
		fmt.Printf("Lost:  %d (%.1f%%)\n", report.Difference, report.DiffPercent*100)
	}
	if report.IsSuspicious {
		fmt.Printf("Suspicious: the translation lost more than %.0f%% of the input's pages\n",
			pipeline.PageCountThreshold*100)
		return 2
	}
	fmt.Println("OK: page count within threshold")
	return 0
}

// deliverText prints text to stdout, or writes it to path when one is
// given.
func deliverText(text, path string) int {
	if path == "" {
		if strings.TrimSpace(text) != "" {
			fmt.Println(text)
		}
		return 0
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	fmt.Printf("Saved: %s\n", path)
	return 0
}

// progressPrinter writes a single self-overwriting progress line.
func progressPrinter(total int) pipeline.ProgressFunc {
	return func(st types.PageStatus) {
		pct := 0
		if total > 0 {
			pct = (st.PageIndex + 1) * 100 / total
		}
		fmt.Printf("\r[%3d%%] page %d/%d: %-11s", pct, st.PageIndex+1, total, st.Phase)
	}
}

// outputFor derives "<root>_<suffix>" next to the input file.
func outputFor(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + "_" + suffix
}
