// Command sentiment classifies text from the command line or standard input
// using the current model bundle.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tsawler/sentiment"
	"github.com/tsawler/sentiment/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	sentences := flag.Bool("sentences", false, "classify each sentence separately")
	verbose := flag.Bool("v", false, "print the full probability distribution")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: sentiment [flags] [text ...]\n\nWith no text arguments, each line of standard input is classified.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := cfg.NewLogger()

	analyzer, err := sentiment.LoadAnalyzer(cfg.Model.Dir, cfg.AnalyzerConfig(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assets not found. Please run the train command first. (%v)\n", err)
		os.Exit(1)
	}

	p := printer{analyzer: analyzer, sentences: *sentences, verbose: *verbose}
	if flag.NArg() > 0 {
		p.print(strings.Join(flag.Args(), " "))
		return
	}
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		p.print(sc.Text())
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}
}

type printer struct {
	analyzer  *sentiment.Analyzer
	sentences bool
	verbose   bool
}

func (p printer) print(text string) {
	if !p.sentences {
		res, err := p.analyzer.Analyze(text)
		if err != nil {
			report(err)
			return
		}
		p.line("", res)
		return
	}
	results, err := p.analyzer.AnalyzeSentences(text)
	if err != nil {
		report(err)
		return
	}
	for _, r := range results {
		p.line(fmt.Sprintf("%q: ", r.Text), r.PredictionResult)
	}
}

func report(err error) {
	if errors.Is(err, sentiment.ErrEmptyInput) {
		fmt.Println("Please enter some text")
		return
	}
	fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
}

func (p printer) line(prefix string, res sentiment.PredictionResult) {
	fmt.Println(prefix + sentiment.Describe(res))
	if !p.verbose {
		return
	}
	for _, s := range res.Scores {
		fmt.Printf("  %-10s %.4f\n", s.Label, s.Probability)
	}
}
