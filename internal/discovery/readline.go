package discovery

import (
	"bufio"
	"context"
)

// readLineWithContext returns a line from reader, or ctx.Err() once the
// context is cancelled. A cancelled read abandons its goroutine; by then the
// surrounding deployment is aborting and the process is on its way out.
func readLineWithContext(ctx context.Context, reader *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}

	resultCh := make(chan result, 1)
	go func() {
		line, err := reader.ReadString('\n')
		resultCh <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		return res.line, res.err
	}
}
