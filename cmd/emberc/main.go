// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"ember/grammar"
	"ember/internal/ast"
	"ember/internal/codegen"
	"ember/internal/errors"
	"ember/internal/semantic"
)

var log = commonlog.GetLogger("emberc")

func main() {
	printAsm := flag.Bool("asm", false, "print assembly instead of bytecode")
	cloneName := flag.String("clone", "", "also emit clone creation code for the named contract")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: emberc [flags] <file.mbr>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	startTime := time.Now()
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	reporter := errors.NewErrorReporter(path, string(source))

	unit, parseErr := grammar.Parse(path, string(source))
	if parseErr != nil {
		if diag, ok := grammar.Diagnostic(parseErr); ok {
			fmt.Print(reporter.FormatError(diag))
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", parseErr)
		}
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}
	log.Debugf("parsed %s", path)

	contracts, diags := semantic.Bind(unit)
	if len(diags) > 0 {
		for _, diag := range diags {
			fmt.Print(reporter.FormatError(diag))
		}
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}
	log.Debugf("bound %d contract(s)", len(contracts))

	results, err := codegen.CompileAll(context.Background(), contracts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	for _, res := range results {
		if err := emit(res, *printAsm); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Contract.Name, err)
			os.Exit(1)
		}
	}

	if *cloneName != "" {
		if err := emitClone(contracts, *cloneName, *printAsm); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	color.Green("Successfully compiled %s in %s", path, formatDuration(time.Since(startTime)))
}

func emit(res *codegen.Result, printAsm bool) error {
	fmt.Printf("======= %s =======\n", res.Contract.Name)
	if printAsm {
		fmt.Print(res.Creation.Disassemble())
		return nil
	}
	creation, err := res.Creation.Assemble()
	if err != nil {
		return err
	}
	fmt.Println("Binary:")
	fmt.Printf("%x\n", creation.Code)
	fmt.Println("Runtime:")
	fmt.Printf("%x\n", creation.Subs[0].Code)
	for _, site := range creation.Subs[0].PatchSites {
		log.Infof("%s: runtime patch site %s at offset %d", res.Contract.Name, site.Role, site.Offset)
	}
	return nil
}

func emitClone(contracts []*ast.Contract, name string, printAsm bool) error {
	for _, contract := range contracts {
		if contract.Name != name {
			continue
		}
		res, err := codegen.CompileClone(contract)
		if err != nil {
			return err
		}
		fmt.Printf("======= %s (clone) =======\n", name)
		if printAsm {
			fmt.Print(res.Creation.Disassemble())
			return nil
		}
		creation, err := res.Creation.Assemble()
		if err != nil {
			return err
		}
		fmt.Println("Binary:")
		fmt.Printf("%x\n", creation.Code)
		return nil
	}
	return fmt.Errorf("no contract named %q to clone", name)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1e6)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1e3)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
