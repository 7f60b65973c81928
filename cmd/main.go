package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/peterh/liner"

	plume "go.plume.dev/pkg"
)

const historyFile = ".plume_history"

var CLI struct {
	Parse ParseCmd `cmd:"" help:"Parse a file and dump its syntax tree."`
	Check CheckCmd `cmd:"" help:"Run the full front-end and report diagnostics."`
	Repl  ReplCmd  `cmd:"" help:"Interactive line-by-line front-end."`
}

type ParseCmd struct {
	File     string `arg:"" help:"Source file to parse." type:"existingfile"`
	Format   string `help:"Output format." enum:"source,yaml" default:"source"`
	MaxDepth int    `help:"String template nesting limit; 0 means unbounded." default:"0"`
}

func (cmd *ParseCmd) Run() error {
	src, err := os.ReadFile(cmd.File)
	if err != nil {
		return err
	}

	fe := plume.NewFrontend()
	fe.MaxDepth = cmd.MaxDepth

	ast, diags := fe.Parse(cmd.File, string(src))
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, plume.RenderColor(d, cmd.File, string(src)))
	}

	if cmd.Format == "yaml" {
		out, err := yaml.Marshal(ast)
		if err != nil {
			return fmt.Errorf("encoding syntax tree: %w", err)
		}

		os.Stdout.Write(out)
	} else {
		fmt.Print(plume.PrintAST(ast))
	}

	if hasErrors(diags) {
		os.Exit(1)
	}

	return nil
}

type CheckCmd struct {
	File    string `arg:"" help:"Source file to check." type:"existingfile"`
	Mutable bool   `help:"Treat flagless declarations as mutable."`
}

func (cmd *CheckCmd) Run() error {
	src, err := os.ReadFile(cmd.File)
	if err != nil {
		return err
	}

	fe := plume.NewFrontend()
	if cmd.Mutable {
		fe.Policy = plume.BareIsMutable
	}

	_, diags := fe.Run(cmd.File, string(src))
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, plume.RenderColor(d, cmd.File, string(src)))
	}

	if hasErrors(diags) {
		os.Exit(1)
	}

	color.Green("%s: ok", cmd.File)
	return nil
}

type ReplCmd struct {
	Mutable bool `help:"Treat flagless declarations as mutable."`
}

func (cmd *ReplCmd) Run() error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	fe := plume.NewFrontend()
	if cmd.Mutable {
		fe.Policy = plume.BareIsMutable
	}

	fmt.Println("plume front-end, Ctrl+D to exit")
	for {
		line, err := ln.Prompt(">> ")
		if err != nil {
			fmt.Println()
			break
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		ln.AppendHistory(line)

		ast, diags := fe.Run("repl", line)
		for _, d := range diags {
			fmt.Println(plume.RenderColor(d, "repl", line))
		}

		if !hasErrors(diags) {
			fmt.Print(plume.PrintAST(ast))
		}
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}

	return nil
}

func hasErrors(diags []plume.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == plume.SeverityError {
			return true
		}
	}

	return false
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("plume"),
		kong.Description("Front-end for the plume language: lexer, parser and reference capability checker."),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
