package transport

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
)

// Bridge copies bytes in both directions between a and b until one side
// reaches end of stream, a copy fails, or ctx is done. Both streams are
// closed before it returns. A clean end of stream returns nil.
func Bridge(ctx context.Context, a, b io.ReadWriteCloser) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return relay(b, a) })
	g.Go(func() error { return relay(a, b) })
	g.Go(func() error {
		<-gctx.Done()
		_ = a.Close()
		_ = b.Close()
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// relay copies src into dst and reports io.EOF when src ends cleanly, so the
// group tears down the other direction too.
func relay(dst io.Writer, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return io.EOF
}
