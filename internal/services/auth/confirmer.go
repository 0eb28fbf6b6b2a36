package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// DefaultPrompt is shown while the browser waits for the human
const DefaultPrompt = "--> Log in to Amazon in the browser window, then press Enter here... "

// ConsoleConfirmer waits for a line on the terminal
type ConsoleConfirmer struct {
	in     io.Reader
	out    io.Writer
	prompt string
}

// NewConsoleConfirmer creates a confirmer reading from in and prompting on out
func NewConsoleConfirmer(in io.Reader, out io.Writer, prompt string) *ConsoleConfirmer {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &ConsoleConfirmer{in: in, out: out, prompt: prompt}
}

// WaitForConfirmation blocks until a line is read or ctx is done. There is no timeout.
func (c *ConsoleConfirmer) WaitForConfirmation(ctx context.Context) error {
	fmt.Fprint(c.out, c.prompt)

	done := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(c.in).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		if err == io.EOF {
			err = fmt.Errorf("input closed before login was confirmed")
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return ctx.Err()
	}
}
