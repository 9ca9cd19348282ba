package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/hanconv/internal/presentation/tui"
	"github.com/aretw0/hanconv/pkg/diagnostics"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/environment"
)

// Service is the part of hanconv.Converter the commands use.
type Service interface {
	Dispatch(ctx context.Context, req domain.ConversionRequest) domain.ConversionResult
	Diagnose(ctx context.Context) *diagnostics.Report
	Provision(ctx context.Context) environment.ProvisionReport
}

// ErrNoInput is returned when no text was given and stdin is a terminal.
var ErrNoInput = errors.New("no input: pass text as arguments or pipe it on stdin")

// StdinIsTerminal reports whether os.Stdin is an interactive terminal.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// StdoutIsTerminal reports whether os.Stdout is an interactive terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ReadInput returns the text to convert: the joined args, or all of stdin
// when no args are given and stdin is not a terminal.
func ReadInput(ctx context.Context, args []string, stdin io.Reader, interactive bool) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if interactive {
		return "", ErrNoInput
	}
	data, err := io.ReadAll(NewInterruptibleReader(stdin, ctx.Done()))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ConvertOptions configures RunConvert.
type ConvertOptions struct {
	Action string
	JSON   bool
	// Lines converts each input line as its own request.
	Lines bool
}

// convertOutput is the --json rendering of a result.
type convertOutput struct {
	RequestID string           `json:"request_id,omitempty"`
	Output    string           `json:"output,omitempty"`
	Error     string           `json:"error,omitempty"`
	Kind      domain.ErrorKind `json:"kind,omitempty"`
	Cached    bool             `json:"cached,omitempty"`
}

// RunConvert converts text and writes the result to out. Failures are
// reported on errOut and returned; the input is never echoed as output.
func RunConvert(ctx context.Context, svc Service, text string, opts ConvertOptions, out, errOut io.Writer) error {
	action, err := domain.ParseAction(opts.Action)
	if err != nil {
		return err
	}

	inputs := []string{text}
	if opts.Lines {
		inputs = splitLines(text)
	}

	var failed error
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return handleExecutionError(err)
		}
		res := svc.Dispatch(ctx, domain.ConversionRequest{Text: in, Action: action})
		if err := writeResult(res, opts.JSON, out, errOut); err != nil {
			if isInterrupted(err) {
				return handleExecutionError(err)
			}
			failed = err
		}
	}
	return failed
}

func writeResult(res domain.ConversionResult, asJSON bool, out, errOut io.Writer) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		rendered := convertOutput{RequestID: res.RequestID, Output: res.Output, Cached: res.Cached}
		if res.Err != nil {
			rendered.Error = res.Err.Error()
			rendered.Kind = res.Err.Kind
		}
		if err := enc.Encode(rendered); err != nil {
			return err
		}
		if res.Err != nil {
			return res.Err
		}
		return nil
	}

	if res.Err != nil {
		fmt.Fprintln(errOut, tui.Failure(res.Err.Error()))
		return res.Err
	}
	output := res.Output
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	_, err := io.WriteString(out, output)
	return err
}

func splitLines(text string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			lines = append(lines, sc.Text())
		}
	}
	return lines
}
