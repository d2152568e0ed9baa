package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/benchmark"
	"github.com/MeKo-Tech/checkcode/internal/pipeline"
)

func main() {
	var (
		iterations = flag.Int("iterations", 10, "Number of iterations per benchmark")
		outputFile = flag.String("output", "", "CSV file for results (optional)")
		tryHarder  = flag.Bool("try-harder", true, "Use the exhaustive decoder search")
		verifyOut  = flag.Bool("verify-output", true, "Decode every generated code before returning it")
	)
	flag.Parse()

	if *iterations <= 0 {
		log.Fatalf("iterations must be positive, got %d", *iterations)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.NewBuilder().WithVerifyOutput(*verifyOut).Build()
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	bench, err := benchmark.NewCodeBenchmark(ctx, p, barcode.NewDecoder(barcode.Options{TryHarder: *tryHarder}), benchmark.DefaultCases())
	if err != nil {
		log.Fatalf("Failed to prepare benchmark: %v", err)
	}

	fmt.Printf("Running %d benchmarks with %d iterations each...\n\n", len(bench.Names()), *iterations)
	bench.RunAll(ctx, *iterations)
	bench.PrintDetailedResults(os.Stdout)

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, bench); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("Results saved to: %s\n", *outputFile)
		}
	}
}

func saveResultsToFile(filename string, bench *benchmark.CodeBenchmark) error {
	file, err := os.Create(filename) //nolint:gosec // G304: user-selected output path
	if err != nil {
		return err
	}
	if err := bench.WriteCSV(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
