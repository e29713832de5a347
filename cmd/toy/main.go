package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/toy/compiler"
	"github.com/slowlang/toy/compiler/ast"
	"github.com/slowlang/toy/compiler/cfg"
	"github.com/slowlang/toy/compiler/exec"
	"github.com/slowlang/toy/compiler/format"
	"github.com/slowlang/toy/compiler/parse"
)

const historyFile = ".toy_history"

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print syntax tree",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "print canonical source",
		Action:      fmtAct,
		Args:        cli.Args{},
	}

	lowerCmd := &cli.Command{
		Name:        "lower",
		Description: "print LLVM IR",
		Action:      lowerAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("module", "", "module name"),
			cli.NewFlag("entry", "", "entry routine name"),
			cli.NewFlag("verify", true, "check control flow graph"),
		},
	}

	cfgCmd := &cli.Command{
		Name:        "cfg",
		Description: "print control flow graph",
		Action:      cfgAct,
		Args:        cli.Args{},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and interpret, print the returned value",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("max-steps", exec.DefaultMaxSteps, "instruction budget"),
		},
	}

	replCmd := &cli.Command{
		Name:        "repl",
		Description: "interactive session",
		Action:      replAct,
		Flags: []*cli.Flag{
			cli.NewFlag("max-steps", exec.DefaultMaxSteps, "instruction budget"),
		},
	}

	app := &cli.Command{
		Name:        "toy",
		Description: "toy is a compiler of a small imperative language to LLVM IR",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
		},
		Commands: []*cli.Command{
			parseCmd,
			fmtCmd,
			lowerCmd,
			cfgCmd,
			runCmd,
			replCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	var w io.Writer = os.Stderr

	if name := c.String("log"); name != "" && name != "stderr" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}

		w = f
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func rootContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func parseAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		x, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		fmt.Printf("ast: %+v\n", x)
	}

	return nil
}

func fmtAct(c *cli.Command) (err error) {
	ctx := rootContext()

	var b []byte

	for _, a := range c.Args {
		x, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		b, err = format.Format(ctx, b[:0], x)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func lowerAct(c *cli.Command) (err error) {
	ctx := rootContext()

	opts := compiler.Options{
		ModuleName: c.String("module"),
		EntryName:  c.String("entry"),
		Verify:     c.Bool("verify"),
	}

	for _, a := range c.Args {
		m, err := compiler.CompileFile(ctx, a, opts)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		err = m.Dump(os.Stdout)
		if err != nil {
			return errors.Wrap(err, "dump")
		}
	}

	return nil
}

func cfgAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		m, err := compiler.CompileFile(ctx, a, compiler.Options{})
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		g, err := cfg.Build(m.Func())
		if err != nil {
			return errors.Wrap(err, "build cfg")
		}

		verr := cfg.Verify(ctx, g)

		fmt.Printf("%s", cfg.Append(nil, g))

		if verr != nil {
			return verr
		}
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := rootContext()

	opts := exec.Options{MaxSteps: c.Int("max-steps")}

	for _, a := range c.Args {
		m, err := compiler.CompileFile(ctx, a, compiler.Options{Verify: true})
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		res, err := exec.Run(ctx, m.Func(), opts)
		if err != nil {
			return errors.Wrap(err, "run %v", a)
		}

		fmt.Printf("%d\n", res)
	}

	return nil
}

// replAct keeps a session of accepted statements.
// Each input is compiled and run after the session so far,
// and kept in the session unless it returns at the top level.
func replAct(c *cli.Command) (err error) {
	ctx := rootContext()

	opts := exec.Options{MaxSteps: c.Int("max-steps")}

	home, _ := os.UserHomeDir()
	hist := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()

	ln.SetCtrlCAborts(true)

	if f, err := os.Open(hist); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	defer func() {
		if f, err := os.Create(hist); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	var session []byte

	for {
		chunk, ok := readChunk(ctx, ln)
		if !ok {
			fmt.Println()
			return nil
		}

		if len(bytes.TrimSpace(chunk)) == 0 {
			continue
		}

		ln.AppendHistory(string(bytes.ReplaceAll(chunk, []byte{'\n'}, []byte{' '})))

		p, err := parse.Parse(ctx, chunk)
		if err != nil {
			fmt.Println(err)
			continue
		}

		src := append(session[:len(session):len(session)], chunk...)

		m, err := compiler.Compile(ctx, "repl", src, compiler.Options{Verify: true})
		if err != nil {
			fmt.Println(err)
			continue
		}

		res, err := exec.Run(ctx, m.Func(), opts)
		if err != nil {
			fmt.Println(err)
			continue
		}

		if !returns(p) {
			session = src
		}

		fmt.Println(res)
	}
}

// readChunk reads lines until they parse or fail for a reason
// other than the input ending too early.
func readChunk(ctx context.Context, ln *liner.State) ([]byte, bool) {
	var b []byte

	for {
		prompt := "toy> "
		if len(b) != 0 {
			prompt = "...> "
		}

		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return nil, false
		}
		if err != nil {
			return nil, true
		}

		b = append(b, line...)
		b = append(b, '\n')

		_, err = parse.Parse(ctx, b)
		if parse.Incomplete(err) {
			continue
		}

		return b, true
	}
}

func returns(p *ast.Program) bool {
	for _, s := range p.Stmts {
		if _, ok := s.(*ast.Return); ok {
			return true
		}
	}

	return false
}
