// Package explain draws how a configuration was composed.
//
// [ToDOT] renders a composition result as a Graphviz graph: one node per
// fragment in merge order (inapplicable packs dashed), an edge from each
// contributing fragment into the final configuration, and a red edge for
// every recorded override pointing from the fragment that lost the value to
// the one that replaced it. [RenderSVG] lays the graph out in-process.
package explain

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stackpack/pkg/compose"
	"github.com/matzehuels/stackpack/pkg/errors"
	"github.com/matzehuels/stackpack/pkg/fragment"
)

// Output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// finalNode is the merged configuration's node ID.
const finalNode = "final"

// Options configures graph rendering.
type Options struct {
	// Detailed adds plugin names to fragment labels.
	Detailed bool
}

// ToDOT converts a composition result to Graphviz DOT.
func ToDOT(res *compose.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph composition {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("\n")

	for _, f := range res.Fragments {
		fmt.Fprintf(&buf, "  %q [%s];\n", f.Name, strings.Join(fragmentAttrs(f, opts.Detailed), ", "))
	}
	fmt.Fprintf(&buf, "  %q [label=%q, shape=doubleoctagon, fillcolor=\"#e0f2f1\"];\n",
		finalNode, finalLabel(res.Configuration))

	buf.WriteString("\n")
	order := 0
	for _, f := range res.Fragments {
		if f.IsNone() {
			continue
		}
		order++
		fmt.Fprintf(&buf, "  %q -> %q [label=\"%d\"];\n", f.Name, finalNode, order)
	}
	for _, o := range res.Configuration.Overrides {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q, color=\"#c0392b\", fontcolor=\"#c0392b\", style=dashed, constraint=false];\n",
			o.From, o.To, o.Slot)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fragmentAttrs(f fragment.Fragment, detailed bool) []string {
	if f.IsNone() {
		return []string{
			fmt.Sprintf("label=%q", f.Name+"\n(not applicable)"),
			"style=\"rounded,filled,dashed\"",
			"fillcolor=lightgrey",
			"fontcolor=\"#555555\"",
		}
	}
	return []string{fmt.Sprintf("label=%q", fragmentLabel(f, detailed))}
}

func fragmentLabel(f fragment.Fragment, detailed bool) string {
	parts := []string{f.Name}
	var counts []string
	if n := countRules(f.Module.Rules); n > 0 {
		counts = append(counts, plural(n, "rule"))
	}
	if n := len(f.Plugins); n > 0 {
		counts = append(counts, plural(n, "plugin"))
	}
	if n := len(f.Resolve.Aliases); n > 0 {
		counts = append(counts, plural(n, "alias"))
	}
	if len(counts) > 0 {
		parts = append(parts, strings.Join(counts, ", "))
	}
	if detailed {
		parts = append(parts, f.PluginNames()...)
	}
	return strings.Join(parts, "\n")
}

func finalLabel(cfg fragment.Configuration) string {
	label := fmt.Sprintf("%s\n%s, %s", finalNode, plural(countRules(cfg.Module.Rules), "rule"), plural(len(cfg.Plugins), "plugin"))
	if cfg.Mode != "" {
		label += "\n" + cfg.Mode
	}
	return label
}

// countRules counts rules including oneOf branches.
func countRules(rules []fragment.Rule) int {
	n := 0
	for _, r := range rules {
		if len(r.OneOf) > 0 {
			n += countRules(r.OneOf)
			continue
		}
		n++
	}
	return n
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "s") {
		return fmt.Sprintf("%d %ses", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Render produces the graph in the named format.
func Render(ctx context.Context, res *compose.Result, format string, opts Options) ([]byte, error) {
	dot := ToDOT(res, opts)
	switch format {
	case FormatDOT, "":
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q (want %s or %s)", format, FormatDOT, FormatSVG)
}
