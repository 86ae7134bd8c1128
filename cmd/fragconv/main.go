// fragconv converts STEP exchange files into fragment containers, either a
// single file at a time or a whole directory per invocation. Single-file
// results are emitted as a marked JSON line so wrapping processes can
// recover the outcome from stdout.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/step-fragments/backend/internal/batch"
	"github.com/step-fragments/backend/internal/config"
	"github.com/step-fragments/backend/internal/convert"
	"github.com/step-fragments/backend/internal/fragment"
	"github.com/step-fragments/backend/internal/profile"
)

func main() {
	single := flag.Bool("single", false, "convert one file instead of a directory")
	overwrite := flag.Bool("overwrite", false, "reconvert files whose target artifact exists")
	settingsPath := flag.String("settings", "", "path to a YAML settings file")
	reportPath := flag.String("report", "", "write a JSON batch report to this path")
	showProfile := flag.Bool("profile", false, "print the source profile before converting (single mode)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	settings := &config.Settings{}
	if *settingsPath != "" {
		loaded, err := config.LoadSettings(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fragconv: loading settings: %v\n", err)
			os.Exit(1)
		}
		settings = loaded
	}

	// Flags beat settings-file values.
	if *overwrite {
		settings.Overwrite = true
	}
	if *reportPath != "" {
		settings.ReportPath = *reportPath
	}

	chunkSize := settings.ChunkSizeKB * 1024
	if chunkSize <= 0 {
		chunkSize = fragment.DefaultChunkSize
	}
	converter := convert.NewConverter(fragment.NewEncoderWithChunkSize(chunkSize))

	if *single {
		os.Exit(runSingle(converter, args, *showProfile))
	}
	os.Exit(runBatch(converter, args, settings))
}

// runSingle converts one file and prints the marked result line.
func runSingle(converter *convert.Converter, args []string, showProfile bool) int {
	source := args[0]
	target := convert.OutputPathFor(source)
	if len(args) > 1 {
		target = args[1]
	}

	if showProfile {
		prof, err := profile.Profile(source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fragconv: profiling %s: %v\n", source, err)
			return 1
		}
		fmt.Printf("size: %d bytes (%s tier)\n", prof.SizeBytes, prof.SizeTier)
		fmt.Printf("header valid: %v\n", prof.HeaderValid)
		if prof.SchemaID != "" {
			fmt.Printf("schema: %s\n", prof.SchemaID)
		}
		fmt.Printf("estimated RAM: %d MB\n", prof.EstimatedRAMMB)
		if prof.Advisory != nil {
			fmt.Printf("advisory: %s\n", prof.Advisory.Note)
		}
	}

	result := converter.Convert(source, target)
	if err := convert.WriteResultLine(os.Stdout, result); err != nil {
		fmt.Fprintf(os.Stderr, "fragconv: writing result: %v\n", err)
		return 1
	}

	if !result.Success {
		return 1
	}
	return 0
}

// runBatch converts a directory of exchange files.
func runBatch(converter *convert.Converter, args []string, settings *config.Settings) int {
	sourceDir := args[0]
	targetDir := sourceDir
	if len(args) > 1 {
		targetDir = args[1]
	}

	coordinator := batch.NewCoordinator(converter, batch.Options{
		Overwrite:  settings.Overwrite,
		ReportPath: settings.ReportPath,
		Extensions: settings.Extensions,
	})

	summary, err := coordinator.Run(sourceDir, targetDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fragconv: %v\n", err)
		return 1
	}

	fmt.Printf("converted %d/%d files (%d skipped, %d failed) in %.2fs\n",
		summary.Successful, summary.TotalFiles, summary.Skipped, summary.Failed, summary.TotalTime)

	if summary.Failed > 0 {
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: fragconv [flags] <source> [target]

Converts STEP/IFC exchange files into fragment containers.

By default <source> is a directory and every exchange file in it is
converted into [target] (defaults to the source directory). With -single,
<source> is one file and [target] is the artifact path (defaults to the
source path with a .frag suffix).

Flags:
`)
	flag.PrintDefaults()
}
