package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pdf-translator/internal/pipeline"
	"pdf-translator/internal/types"
)

// cmdBatch translates every PDF in a directory with preserve, one file
// at a time. Outputs that already exist are skipped, so an interrupted
// batch picks up where it stopped when rerun.
func cmdBatch(ctx context.Context, inv invocation) int {
	outputDir := inv.output
	if outputDir == "" {
		outputDir = inv.input
	}

	files, err := findPDFs(inv.input, inv.tgt)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Println("No PDF files to translate.")
		return 0
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	svc, err := inv.service(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	p := pipeline.New(svc.Translate, pipeline.Options{
		Granularity:   inv.granularity,
		Concurrency:   inv.concurrency,
		MaxChunkChars: inv.mgr.GetMaxChunkChars(),
		MinFontSize:   inv.mgr.GetMinFontSize(),
	})

	fmt.Printf("Found %d PDF files in %s\n", len(files), inv.input)
	fmt.Printf("Languages: %s -> %s\n\n", inv.src, inv.tgt)

	success, failed, skipped := 0, 0, 0
	for i, path := range files {
		name := filepath.Base(path)
		output := filepath.Join(outputDir, outputFor(name, inv.tgt+".pdf"))

		if _, err := os.Stat(output); err == nil {
			fmt.Printf("[%d/%d] Skipping %s (already translated)\n", i+1, len(files), name)
			skipped++
			continue
		}

		fmt.Printf("[%d/%d] Translating %s...\n", i+1, len(files), name)
		result, err := p.Run(ctx, path, output)
		if err != nil {
			fmt.Printf("  ✗ Failed: %v\n", err)
			failed++
			continue
		}
		fmt.Printf("  ✓ Success: %d pages, %d units (%.1fs)\n",
			result.Pages, result.Units, float64(result.DurationMS)/1000.0)
		success++
	}

	fmt.Printf("\n=== Batch Complete ===\n")
	fmt.Printf("Success: %d\n", success)
	fmt.Printf("Failed:  %d\n", failed)
	fmt.Printf("Skipped: %d\n", skipped)
	if failed > 0 {
		return 1
	}
	return 0
}

// findPDFs lists the PDF files in dir in name order. Outputs of earlier
// runs are recognized by the target language suffix and left out.
func findPDFs(dir, tgt string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.NewAppError(types.ErrFileNotFound, "cannot read input directory", err)
	}

	suffix := "_" + tgt + ".pdf"
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if tgt != "" && strings.HasSuffix(name, suffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
