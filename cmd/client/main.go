// File: cmd/client/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"road-boundary-service/internal/client"
	"road-boundary-service/internal/domain/model"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "service base URL")
	sample := flag.String("sample", "", "submit a bundled sample instead of a local file")
	modelName := flag.String("model", "daytime", "detection model")
	conf := flag.Float64("confidence", model.DefaultConfidence, "confidence threshold in [0,1]")
	display := flag.String("display", string(model.DefaultDisplayMode), "draw | highlight | outline | none")
	out := flag.String("out", ".", "directory the result is written to")
	token := flag.String("token", os.Getenv("RBS_TOKEN"), "upload bearer token")
	maxBytes := flag.Int64("max-bytes", client.DefaultMaxBytes, "local file size limit, 0 disables")
	quiet := flag.Bool("q", false, "do not print progress")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	var src client.Source
	switch {
	case *sample != "":
		src.Sample = *sample
	case flag.NArg() == 1:
		src.Path = flag.Arg(0)
	default:
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []client.Option
	if *token != "" {
		opts = append(opts, client.WithToken(*token))
	}
	params := model.JobParams{Model: *modelName, Confidence: *conf, DisplayMode: model.DisplayMode(*display)}

	pipeOpts := []client.PipelineOption{client.WithMaxBytes(*maxBytes)}
	if !*quiet {
		pipeOpts = append(pipeOpts, client.OnChange(func(s client.State) {
			if s.Phase == client.PhaseSubmitting {
				fmt.Fprintf(os.Stderr, "\rprocessing... %3.0f%%", s.Progress)
			}
		}))
	}
	pl := client.NewPipeline(client.New(*server, opts...), params, pipeOpts...)
	pl.Select(src)

	st, err := pl.Submit(ctx)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", st.Error)
		os.Exit(1)
	}

	res, err := pl.Download(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	name := res.Filename
	if name == "" {
		name = "result"
	}
	dst := filepath.Join(*out, filepath.Base(name))
	if err := os.WriteFile(dst, res.Data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s result saved to %s\n", st.Kind, dst)
}
