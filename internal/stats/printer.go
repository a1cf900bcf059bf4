package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultNameWidth is the TestCase column width used when a binary does not
// set its own.
const DefaultNameWidth = 100

type column struct {
	width int
	label string
}

// Printer renders statistics and result messages as a fixed width table or
// as CSV.
type Printer struct {
	W         io.Writer
	Type      PrintType
	NameWidth int
	// Warmup samples are excluded from every printed metric.
	Warmup int
}

func (p *Printer) columns() []column {
	width := p.NameWidth
	if width <= 0 {
		width = DefaultNameWidth
	}
	return []column{
		{width, "TestCase"},
		{15, "Mean"},
		{15, "Median"},
		{15, "StdDev"},
		{15, "Min"},
		{15, "Max"},
		{7, "Type"},
		{15, "Label [unit]"},
	}
}

// Header prints the column names.
func (p *Printer) Header() {
	cols := p.columns()
	if p.Type == PrintCsv {
		labels := make([]string, len(cols))
		for i, c := range cols {
			labels[i] = c.label
		}
		fmt.Fprintln(p.W, strings.Join(labels, ","))
		return
	}
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "%*s", c.width, c.label)
	}
	fmt.Fprintln(p.W, b.String())
}

type metricStrings struct {
	mean, median, stddev, min, max string
	typ, label                     string
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func label(name string, unit Unit) string {
	if name == "" {
		return unit.String()
	}
	return name + " " + unit.String()
}

func (p *Printer) metrics(series Series, reachedInfinity bool) metricStrings {
	sum := Summarize(series.Values, p.Warmup)
	m := metricStrings{
		mean:   formatValue(sum.Mean),
		median: formatValue(sum.Median),
		stddev: strconv.FormatFloat(100*sum.StdDev, 'f', 2, 64) + "%",
		min:    formatValue(sum.Min),
		max:    formatValue(sum.Max),
		typ:    series.Type.String(),
		label:  label(series.Label, series.Unit),
	}
	if reachedInfinity {
		m.mean = "inf"
		m.stddev = "inf"
	}
	return m
}

// Print writes the statistics of one finished test case.
func (p *Printer) Print(name string, s *Statistics) {
	switch p.Type {
	case PrintDefault:
		p.printDefault(name, s)
	case PrintDefaultWithVerbose:
		p.printDefault(name, s)
		p.printVerbose(s)
	case PrintCsv:
		p.printCsv(name, s)
	case PrintNoop:
		p.printNoop(name, s)
	default:
		panic(fmt.Sprintf("unknown print type %v", p.Type))
	}
}

func (p *Printer) printDefault(name string, s *Statistics) {
	cols := p.columns()
	for i, series := range s.Snapshot() {
		m := p.metrics(series, s.ReachedInfinity())
		first := ""
		if i == 0 {
			first = name
		}
		fmt.Fprintf(p.W, "%*s%*s%*s%*s%*s%*s%*s %*s\n",
			cols[0].width, first,
			cols[1].width, m.mean,
			cols[2].width, m.median,
			cols[3].width, m.stddev,
			cols[4].width, m.min,
			cols[5].width, m.max,
			cols[6].width, m.typ,
			cols[7].width-1, m.label)
	}
}

func (p *Printer) printVerbose(s *Statistics) {
	for _, series := range s.Snapshot() {
		var b strings.Builder
		b.WriteString("individual ")
		if series.Label != "" {
			b.WriteString(series.Label)
			b.WriteByte(' ')
		}
		b.WriteString("results: [ ")
		for _, v := range series.Values {
			b.WriteString(strconv.FormatFloat(v, 'g', 6, 64))
			b.WriteByte(' ')
		}
		b.WriteString("]\n")
		io.WriteString(p.W, b.String())
	}
	io.WriteString(p.W, "\n")
}

func (p *Printer) printCsv(name string, s *Statistics) {
	for _, series := range s.Snapshot() {
		m := p.metrics(series, s.ReachedInfinity())
		fmt.Fprintln(p.W, strings.Join([]string{name, m.mean, m.median, m.stddev, m.min, m.max, m.typ, m.label}, ","))
	}
}

func (p *Printer) printNoop(name string, s *Statistics) {
	cols := p.columns()
	padding := 0
	for _, c := range cols[1 : len(cols)-1] {
		padding += c.width
	}
	unit, typ, _ := s.Noop()
	fmt.Fprintf(p.W, "%*s%*s%*s\n", cols[0].width, name, padding, typ.String(), cols[len(cols)-1].width, unit.String())
}

// Message prints a result message (e.g. "NO_SUPPORT") in place of metrics.
func (p *Printer) Message(name, message string) {
	p.message(name, message, "\n")
}

// BeforeTest prints a temporary caption that the next line overwrites.
func (p *Printer) BeforeTest(name string) {
	p.message(name, "", "\r")
}

// ClearLine blanks the caption written by BeforeTest.
func (p *Printer) ClearLine() {
	fmt.Fprintf(p.W, "%s\r", strings.Repeat(" ", p.columns()[0].width))
}

func (p *Printer) message(name, message, ending string) {
	cols := p.columns()
	if p.Type == PrintCsv {
		fields := []string{name}
		for range cols[1:] {
			fields = append(fields, message)
		}
		fmt.Fprint(p.W, strings.Join(fields, ",")+ending)
		return
	}
	width := cols[1].width + cols[2].width + cols[3].width
	fmt.Fprintf(p.W, "%*s%*s%s", cols[0].width, name, width, message, ending)
}
