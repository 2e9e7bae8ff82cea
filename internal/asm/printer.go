package asm

import (
	"fmt"
	"strings"
)

// Disassemble renders the assembly as readable text, one item per line,
// with sub-assemblies nested underneath.
func (a *Assembly) Disassemble() string {
	var b strings.Builder
	a.print(&b, "")
	return b.String()
}

func (a *Assembly) print(b *strings.Builder, indent string) {
	fmt.Fprintf(b, "%s.code %s\n", indent, a.name)
	for _, it := range a.items {
		switch it.Kind {
		case KindOp:
			fmt.Fprintf(b, "%s  %s\n", indent, it.Op)
		case KindPush:
			fmt.Fprintf(b, "%s  PUSH %#x\n", indent, it.Data)
		case KindPushTag:
			fmt.Fprintf(b, "%s  PUSH tag_%d\n", indent, it.Tag.id)
		case KindTag:
			fmt.Fprintf(b, "%stag_%d:\n", indent, it.Tag.id)
		case KindPushSubSize:
			fmt.Fprintf(b, "%s  PUSH #sub_%d\n", indent, it.Sub)
		case KindPushSubOffset:
			fmt.Fprintf(b, "%s  PUSH @sub_%d\n", indent, it.Sub)
		case KindPlaceholder:
			fmt.Fprintf(b, "%s  PUSH20 <%s>\n", indent, it.Role)
		case KindPushProgramSize:
			fmt.Fprintf(b, "%s  PUSH #size\n", indent)
		}
	}
	for i, sub := range a.subs {
		fmt.Fprintf(b, "%s.sub_%d:\n", indent, i)
		sub.print(b, indent+"  ")
	}
}
