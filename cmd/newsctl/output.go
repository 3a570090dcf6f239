package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// printer writes status lines, colored unless disabled.
type printer struct {
	out io.Writer
}

func (p printer) line(c *color.Color, format string, args ...any) {
	c.Fprintf(p.out, format+"\n", args...)
}

func (p printer) Info(format string, args ...any) {
	p.line(color.New(color.FgCyan), format, args...)
}

func (p printer) Success(format string, args ...any) {
	p.line(color.New(color.FgGreen), "✓ "+format, args...)
}

func (p printer) Warning(format string, args ...any) {
	p.line(color.New(color.FgYellow), "! "+format, args...)
}

func (p printer) Header(title string) {
	p.line(color.New(color.Bold, color.Underline), title)
}

func (p printer) Plain(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// table renders rows without borders, left aligned.
func (p printer) table(header []string, rows [][]string) error {
	t := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	t.Header(header)
	if err := t.Bulk(rows); err != nil {
		return err
	}
	return t.Render()
}
