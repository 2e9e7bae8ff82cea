package codegen

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ember/internal/ast"
)

// CompileAll compiles every contract of a bound source unit concurrently.
// Generators share no state (storage slots, tags and work lists are all
// per-assembly), so contracts fan out one per goroutine. The first failure
// cancels the rest.
func CompileAll(ctx context.Context, contracts []*ast.Contract) ([]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*Result, len(contracts))
	for i, contract := range contracts {
		i, contract := i, contract
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := CompileContract(contract)
			if err != nil {
				return fmt.Errorf("%s: %w", contract.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
