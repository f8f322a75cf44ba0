// File: cmd/fakeproc/main.go
//
// fakeproc stands in for the detection processor in local runs and smoke
// tests. It copies the input to the output path and reports on stdout in the
// same JSON shape the real processor uses.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"road-boundary-service/internal/domain/model"
)

type status struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

func main() {
	input := flag.String("input", "", "input file")
	output := flag.String("output", "", "output file")
	modelName := flag.String("model", "daytime", "model name")
	conf := flag.Float64("confidence", model.DefaultConfidence, "confidence threshold")
	display := flag.String("display-mode", string(model.DefaultDisplayMode), "display mode")
	flag.Parse()

	// Optional knobs for exercising failure paths.
	if d, err := time.ParseDuration(os.Getenv("FAKEPROC_DELAY")); err == nil {
		time.Sleep(d)
	}
	if msg := os.Getenv("FAKEPROC_FAIL"); msg != "" {
		emit(status{Error: msg})
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "fakeproc: model=%s confidence=%v display=%s\n", *modelName, *conf, *display)
	out, err := run(*input, *output)
	if err != nil {
		emit(status{Error: err.Error()})
		os.Exit(1)
	}
	emit(status{Success: true, Output: out})
}

func run(input, output string) (string, error) {
	if input == "" || output == "" {
		return "", errors.New("input and output are required")
	}
	// Image writers only produce jpg or png; anything else lands as jpg.
	if model.KindForExt(filepath.Ext(input)) == model.MediaKindImage {
		switch strings.ToLower(filepath.Ext(output)) {
		case ".jpg", ".jpeg", ".png":
		default:
			output = strings.TrimSuffix(output, filepath.Ext(output)) + ".jpg"
		}
	}

	src, err := os.Open(input)
	if err != nil {
		return "", err
	}
	defer src.Close()
	dst, err := os.Create(output)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	return output, dst.Close()
}

func emit(s status) {
	_ = json.NewEncoder(os.Stdout).Encode(s)
}
