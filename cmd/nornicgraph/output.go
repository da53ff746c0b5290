package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/orneryd/nornicgraph/pkg/query"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printClasses renders the catalog, one class per line.
func printClasses(w io.Writer, classes []schema.ClassInfo) error {
	names := make(map[schema.ClassID]string, len(classes))
	for _, c := range classes {
		names[c.ID()] = c.Name()
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSUPER\tPROPERTIES")
	for _, c := range classes {
		super := "-"
		if id := c.Descriptor.SuperClassID; id != schema.AnyClass {
			super = names[id]
		}
		props := make([]string, 0, c.Properties.Len())
		for _, name := range c.Properties.Names() {
			desc, _ := c.Properties.Lookup(name)
			props = append(props, name+":"+desc.Type.String())
		}
		listed := "-"
		if len(props) > 0 {
			listed = strings.Join(props, ", ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID(), c.Name(), c.Type(), super, listed)
	}
	return tw.Flush()
}

// printResults renders a result set. withDepth adds the @depth column used by
// walks.
func printResults(w io.Writer, rs query.ResultSet, withDepth bool) error {
	tw := newTable(w)
	if withDepth {
		fmt.Fprintln(tw, "RID\tCLASS\tDEPTH\tPROPERTIES")
	} else {
		fmt.Fprintln(tw, "RID\tCLASS\tPROPERTIES")
	}
	for _, r := range rs {
		if withDepth {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Record.ClassName(), r.Record.Depth(), formatProps(r.Record))
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Record.ClassName(), formatProps(r.Record))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d %s)\n", len(rs), plural(len(rs), "record", "records"))
	return err
}

func formatProps(r *record.Record) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, name := range r.Names() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.Get(name).Format())
	}
	sb.WriteString("}")
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
