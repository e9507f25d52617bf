// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	pdfdoc "github.com/sassoftware/viya-pdf-doc"
	"github.com/sassoftware/viya-pdf-doc/tracer"
	"github.com/tdewolff/argp"
)

// Options holds the flags every command accepts.
type Options struct {
	Password string
	Strict   bool
	Fallback string
	Trace    bool
}

func (o Options) config() *pdfdoc.Config {
	cfg := pdfdoc.NewDefaultConfig()
	cfg.Password = o.Password
	cfg.Fallback = pdfdoc.FallbackMode(o.Fallback)
	if o.Strict {
		cfg.ParsingMode = pdfdoc.Strict
	}
	return cfg
}

func (o Options) open(input string) (*os.File, *pdfdoc.Document, error) {
	if input == "" {
		return nil, nil, argp.ShowUsage
	}
	return pdfdoc.Open(input, o.config())
}

func (o Options) flush() {
	if o.Trace {
		tracer.Flush(os.Stderr)
	}
}

type Info struct {
	Password string `default:"" desc:"User password"`
	Strict   bool   `desc:"Fail on malformed structures instead of skipping them"`
	Fallback string `default:"auto" desc:"Index reconstruction: auto, always or never"`
	Trace    bool   `desc:"Print the resolution trace to stderr"`
	Timeout  int    `default:"30" desc:"Per document timeout in seconds"`
	Input    string `index:"0" desc:"Input file"`
}

func (cmd *Info) options() Options {
	return Options{cmd.Password, cmd.Strict, cmd.Fallback, cmd.Trace}
}

type Object struct {
	Password string `default:"" desc:"User password"`
	Strict   bool   `desc:"Fail on malformed structures instead of skipping them"`
	Fallback string `default:"auto" desc:"Index reconstruction: auto, always or never"`
	Trace    bool   `desc:"Print the resolution trace to stderr"`
	ID       int    `short:"i" desc:"Object number"`
	Data     bool   `short:"d" desc:"Print decoded stream data instead of the object"`
	Input    string `index:"0" desc:"Input file"`
}

func (cmd *Object) options() Options {
	return Options{cmd.Password, cmd.Strict, cmd.Fallback, cmd.Trace}
}

type XRef struct {
	Password string `default:"" desc:"User password"`
	Strict   bool   `desc:"Fail on malformed structures instead of skipping them"`
	Fallback string `default:"auto" desc:"Index reconstruction: auto, always or never"`
	Trace    bool   `desc:"Print the resolution trace to stderr"`
	Input    string `index:"0" desc:"Input file"`
}

func (cmd *XRef) options() Options {
	return Options{cmd.Password, cmd.Strict, cmd.Fallback, cmd.Trace}
}

type Pages struct {
	Password string `default:"" desc:"User password"`
	Strict   bool   `desc:"Fail on malformed structures instead of skipping them"`
	Fallback string `default:"auto" desc:"Index reconstruction: auto, always or never"`
	Trace    bool   `desc:"Print the resolution trace to stderr"`
	Input    string `index:"0" desc:"Input file"`
}

func (cmd *Pages) options() Options {
	return Options{cmd.Password, cmd.Strict, cmd.Fallback, cmd.Trace}
}

type Outlines struct {
	Password string `default:"" desc:"User password"`
	Strict   bool   `desc:"Fail on malformed structures instead of skipping them"`
	Fallback string `default:"auto" desc:"Index reconstruction: auto, always or never"`
	Trace    bool   `desc:"Print the resolution trace to stderr"`
	Input    string `index:"0" desc:"Input file"`
}

func (cmd *Outlines) options() Options {
	return Options{cmd.Password, cmd.Strict, cmd.Fallback, cmd.Trace}
}

type Dest struct {
	Password string `default:"" desc:"User password"`
	Strict   bool   `desc:"Fail on malformed structures instead of skipping them"`
	Fallback string `default:"auto" desc:"Index reconstruction: auto, always or never"`
	Trace    bool   `desc:"Print the resolution trace to stderr"`
	Name     string `short:"n" desc:"Destination name"`
	Input    string `index:"0" desc:"Input file"`
}

func (cmd *Dest) options() Options {
	return Options{cmd.Password, cmd.Strict, cmd.Fallback, cmd.Trace}
}

func main() {
	root := argp.NewCmd(&Info{}, "PDF object graph inspector")
	root.AddCmd(&Object{}, "object", "Print one indirect object")
	root.AddCmd(&XRef{}, "xref", "List the cross-reference sections and entries")
	root.AddCmd(&Pages{}, "pages", "List the pages with their inherited attributes")
	root.AddCmd(&Outlines{}, "outlines", "Print the document outline")
	root.AddCmd(&Dest{}, "dest", "Resolve a named destination")
	root.Parse()
	root.PrintHelp()
}

func (cmd *Info) Run() error {
	o := cmd.options()
	defer o.flush()
	if cmd.Input == "" {
		return argp.ShowUsage
	}
	cfg := o.config()
	cfg.WorkerTimeout = time.Duration(cmd.Timeout) * time.Second
	proc, err := pdfdoc.NewProcessor(cfg)
	if err != nil {
		return err
	}
	s, err := proc.Inspect(context.Background(), cmd.Input)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func (cmd *Object) Run() error {
	o := cmd.options()
	defer o.flush()
	f, doc, err := o.open(cmd.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	v, err := doc.Get(uint32(cmd.ID))
	if err != nil {
		return err
	}
	if cmd.Data {
		b, err := v.Data()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(b)
		return err
	}
	e, _ := doc.Locate(uint32(cmd.ID))
	fmt.Printf("%d %d obj %v\n", cmd.ID, e.Generation, v)
	return nil
}

func (cmd *XRef) Run() error {
	o := cmd.options()
	defer o.flush()
	f, doc, err := o.open(cmd.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	kinds := make([]string, 0)
	for _, k := range doc.XRefKinds() {
		kinds = append(kinds, k.String())
	}
	fmt.Println("Sections:", strings.Join(kinds, ", "))
	fmt.Println("Trailer:", doc.Trailer())
	for id := range doc.ObjectIDs() {
		e, err := doc.Locate(id)
		if err != nil {
			continue
		}
		switch e.Kind {
		case pdfdoc.EntryDirect:
			fmt.Printf("%6d %5d offset %d\n", id, e.Generation, e.Offset)
		case pdfdoc.EntryCompressed:
			fmt.Printf("%6d     0 in %d[%d]\n", id, e.Container, e.Index)
		}
	}
	return nil
}

func (cmd *Pages) Run() error {
	o := cmd.options()
	defer o.flush()
	f, doc, err := o.open(cmd.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	n := 0
	for p, err := range doc.Pages() {
		if err != nil {
			return err
		}
		n++
		fmt.Printf("page %d (obj %d): MediaBox=%v CropBox=%v Rotate=%d Contents=%d Fonts=%v\n",
			n, p.ID(), p.MediaBox, p.CropBox, p.Rotate, len(p.Contents), p.Fonts())
	}
	return nil
}

func (cmd *Outlines) Run() error {
	o := cmd.options()
	defer o.flush()
	f, doc, err := o.open(cmd.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	items, err := doc.Outlines()
	if err != nil {
		return err
	}
	for it, err := range items {
		if err != nil {
			return err
		}
		dest := it.Dest
		if dest.IsNull() {
			dest = it.Action
		}
		fmt.Printf("%s%s -> %v\n", strings.Repeat("  ", max(it.Level-1, 0)), it.Title, dest)
	}
	return nil
}

func (cmd *Dest) Run() error {
	o := cmd.options()
	defer o.flush()
	if cmd.Name == "" {
		return argp.ShowUsage
	}
	f, doc, err := o.open(cmd.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	v, err := doc.Destination(cmd.Name)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}
