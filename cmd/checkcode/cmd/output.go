package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

// statusNoCode marks a scan that found no QR code at all.
const statusNoCode = "no_code"

// scanReport is the printed outcome of one scan.
type scanReport struct {
	Source  string               `json:"source" yaml:"source"`
	Status  string               `json:"status" yaml:"status"`
	Content string               `json:"content,omitempty" yaml:"content,omitempty"`
	Action  *verify.Action       `json:"action,omitempty" yaml:"action,omitempty"`
	Record  *registry.WireRecord `json:"record,omitempty" yaml:"record,omitempty"`
	Page    int                  `json:"page,omitempty" yaml:"page,omitempty"`
	Frames  int                  `json:"frames,omitempty" yaml:"frames,omitempty"`
}

func newScanReport(source string, c verify.Classification) scanReport {
	action := c.Action
	r := scanReport{Source: source, Status: string(c.Status), Content: c.Content, Action: &action}
	if c.Record != nil {
		w := registry.ToWire(*c.Record)
		r.Record = &w
	}
	return r
}

func noCodeReport(source string) scanReport {
	return scanReport{Source: source, Status: statusNoCode}
}

func (r scanReport) verified() bool { return r.Status == string(verify.Verified) }

func writeScanReport(w io.Writer, format string, r scanReport) error {
	if format != outputFormatText {
		return writeStructured(w, format, r)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Source:\t%s\n", r.Source)
	switch r.Status {
	case statusNoCode:
		fmt.Fprintf(tw, "Status:\tno QR code found\n")
		return tw.Flush()
	case string(verify.Verified):
		fmt.Fprintf(tw, "Status:\tverified\n")
	default:
		fmt.Fprintf(tw, "Status:\tunverified (not issued by this registry)\n")
	}
	fmt.Fprintf(tw, "Content:\t%s\n", r.Content)
	if r.Action != nil {
		if r.Action.Target != "" {
			fmt.Fprintf(tw, "Action:\t%s %s\n", r.Action.Kind, r.Action.Target)
		} else {
			fmt.Fprintf(tw, "Action:\t%s\n", r.Action.Kind)
		}
	}
	if r.Page > 0 {
		fmt.Fprintf(tw, "Page:\t%d\n", r.Page)
	}
	if r.Frames > 0 {
		fmt.Fprintf(tw, "Frames:\t%d\n", r.Frames)
	}
	if r.Record != nil {
		fmt.Fprintf(tw, "Name:\t%s\n", r.Record.Name)
		fmt.Fprintf(tw, "Author:\t%s\n", r.Record.Author)
		fmt.Fprintf(tw, "Registered:\t%s\n", formatCreated(r.Record.CreatedAt))
		fmt.Fprintf(tw, "ID:\t%s\n", r.Record.ID)
	}
	return tw.Flush()
}

func writeRecord(w io.Writer, format string, rec registry.Record) error {
	wire := registry.ToWire(rec)
	if format != outputFormatText {
		return writeStructured(w, format, wire)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", wire.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", wire.Name)
	fmt.Fprintf(tw, "Type:\t%s\n", wire.Type)
	fmt.Fprintf(tw, "Content:\t%s\n", wire.Content)
	fmt.Fprintf(tw, "Author:\t%s\n", wire.Author)
	fmt.Fprintf(tw, "Public:\t%t\n", wire.IsPublic)
	fmt.Fprintf(tw, "Created:\t%s\n", formatCreated(wire.CreatedAt))
	fmt.Fprintf(tw, "Style:\t%s\n", describeStyle(wire))
	return tw.Flush()
}

func writeRecords(w io.Writer, format string, recs []registry.Record) error {
	if format != outputFormatText {
		return writeStructured(w, format, registry.ToWireList(recs))
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No records found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tAUTHOR\tPUBLIC\tCREATED\tCONTENT")
	for _, rec := range recs {
		wire := registry.ToWire(rec)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			wire.ID, wire.Name, wire.Type, wire.Author, wire.IsPublic, formatCreated(wire.CreatedAt), wire.Content)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d record(s)\n", len(recs))
	return err
}

func describeStyle(w registry.WireRecord) string {
	colors := w.Color1
	if w.Color2 != "" {
		colors += " -> " + w.Color2
	}
	s := fmt.Sprintf("%s, eyes %s, dots %s", colors, w.EyeStyle, w.DotStyle)
	if w.LogoImage != "" {
		s += ", logo"
	}
	return s
}

func formatCreated(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
