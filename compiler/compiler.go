package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/toy/compiler/cfg"
	"github.com/slowlang/toy/compiler/ir"
	"github.com/slowlang/toy/compiler/lower"
	"github.com/slowlang/toy/compiler/parse"
)

type (
	Options struct {
		// ModuleName and EntryName default to
		// ir.DefaultModuleName and ir.DefaultEntryName.
		ModuleName string
		EntryName  string

		// Verify checks the control flow graph of the result.
		Verify bool
	}
)

func CompileFile(ctx context.Context, name string, opts Options) (m *ir.Module, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

func Compile(ctx context.Context, name string, text []byte, opts Options) (m *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "verify", opts.Verify)
	defer tr.Finish("err", &err)

	p, err := parse.Parse(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", name)
	}

	m, err = lower.Lower(ctx, p, lower.Config{
		ModuleName: opts.ModuleName,
		EntryName:  opts.EntryName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	if !opts.Verify {
		return m, nil
	}

	g, err := cfg.Build(m.Func())
	if err != nil {
		return nil, errors.Wrap(err, "build cfg")
	}

	err = cfg.Verify(ctx, g)
	if err != nil {
		return nil, err
	}

	return m, nil
}
