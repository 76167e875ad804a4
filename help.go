package treeconf

import (
	"fmt"
	"io"
	"strings"
)

// WriteHelp renders the full option tree: one line per field with its
// dotted path, resolved type, default value (or the default factory's
// product), and help text. Every declared variant is listed, not only the
// active one.
func (c *Config) WriteHelp(w io.Writer, prog string) {
	fmt.Fprintf(w, "Usage: %s [--option value ...]\n", prog)
	c.writeHelp(w, "", "")
}

func (c *Config) writeHelp(w io.Writer, path, heading string) {
	if c.groups != nil {
		base := strings.TrimSuffix(path, ".")
		for _, name := range c.groups.names {
			head := fmt.Sprintf("active if --%s %s:", base, name)
			if base == "" {
				// Grouped at the root: there is no flag to select by.
				head = fmt.Sprintf("variant %s:", name)
			}
			v := c.groups.variants[name]
			if v.node != nil {
				v.node.writeHelp(w, path, head)
			} else {
				fmt.Fprintf(w, "\n%s\n", head)
				if base == "" {
					fmt.Fprintf(w, "  %v\n", v.scalar)
				} else {
					fmt.Fprintf(w, "  %s = %v\n", base, v.scalar)
				}
			}
		}
		return
	}

	fmt.Fprintln(w)
	if heading != "" {
		fmt.Fprintln(w, heading)
	}

	var sections []*child
	for _, ch := range c.children {
		if ch.field != nil {
			fmt.Fprintln(w, helpLine(path+ch.name, ch.field))
		} else {
			sections = append(sections, ch)
		}
	}
	for _, ch := range sections {
		ch.node.writeHelp(w, path+ch.name+".", "")
	}
}

func helpLine(path string, f *Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--%s", path)
	if f.typ != nil {
		fmt.Fprintf(&b, " %s", f.typ)
	}

	def := f.defaultValue()
	if IsUnspecified(def) {
		b.WriteString(" (required)")
	} else {
		fmt.Fprintf(&b, " = %v", def)
	}

	if f.help == "" {
		return "  " + b.String()
	}
	return fmt.Sprintf("  %-58s%s", b.String(), f.help)
}
