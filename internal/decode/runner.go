package decode

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
)

const (
	// ParseErrorsThreshold defines the number of consecutive parse errors allowed
	ParseErrorsThreshold = 5

	bufferCapacity = 4096
	bufferFlush    = 1024
)

var (
	// ErrTooManyParseErrors is returned when the number of consecutive parse errors exceeds the threshold
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

	// ErrBrokenPipe is returned when there's an error reading from stdout or stderr
	ErrBrokenPipe = errors.New("broken pipe")
)

// WithLogger sets the logger for the runner
func WithLogger(logger *slog.Logger) func(r *Runner) {
	return func(r *Runner) {
		r.logger = logger.With(slog.String("decoder", r.command))
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive parse errors
func WithParseErrorsThreshold(threshold uint8) func(r *Runner) {
	return func(r *Runner) {
		r.parseErrorsThreshold = threshold
	}
}

// Runner executes an external decoder tool against a log file and
// collects the CSV records it emits on stdout. The tool is invoked as
// command args... <path> and is expected to print a telemetry header
// followed by data rows; anything on stderr is logged.
type Runner struct {
	command string
	args    []string

	parseErrorsThreshold uint8
	logger               *slog.Logger
}

// NewRunner creates a Runner for the given decoder command with a discard
// logger.
func NewRunner(command string, args []string, options ...func(r *Runner)) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	r := Runner{
		command:              command,
		args:                 args,
		logger:               logger,
		parseErrorsThreshold: ParseErrorsThreshold,
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Decode runs the decoder on the log at path and returns the ordered
// records it produced.
func (r *Runner) Decode(ctx context.Context, path string) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command, append(slices.Clone(r.args), path)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting decoder: %w", err)
	}

	r.logger.Info("decoding flight log...", slog.String("path", path))

	buf, err := NewRecordBuffer(bufferCapacity, bufferFlush)
	if err != nil {
		return nil, err
	}

	var parser rowParser
	var records []*Record

	done := make(chan error, 3) // expects three results from three goroutines

	go r.handleStdout(stdout, &parser, buf, &records, done)
	go r.handleStderr(stderr, done)
	go r.handleCmdWait(cmd, done)

	var errs []error
	for i := 0; i < cap(done); i++ {
		if err := <-done; err != nil {
			cancel() // stop the decoder on error
			r.logger.Error(err.Error())

			errs = append(errs, err)
		}
	}

	close(done)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if parser.columns == nil {
		return nil, ErrNoHeader
	}

	records = append(records, buf.DrainAll()...)
	r.logger.Info("flight log decoded", slog.Int("records", len(records)))

	return &Result{Meta: parser.metadata(), Records: records}, nil
}

// handleStdout reads csv rows from stdout, parses them and keeps records
// ordered through the buffer. Ordered prefixes are flushed out of the
// buffer as it fills.
func (r *Runner) handleStdout(stdout io.Reader, parser *rowParser, buf *RecordBuffer, records *[]*Record, done chan<- error) {
	var parseErrors uint8

	cr := csv.NewReader(stdout)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for {
		fields, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, fs.ErrClosed) {
				break
			}
			done <- fmt.Errorf("%w: error reading stdout: %w", ErrBrokenPipe, err)
			return
		}

		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}

		rec, err := parser.row(fields)
		if err != nil {
			parseErrors++
			r.logger.Warn(fmt.Sprintf("error parsing record: %s", err.Error()))

			if parseErrors >= r.parseErrorsThreshold {
				done <- ErrTooManyParseErrors
				return
			}

			continue
		}

		parseErrors = 0 // reset counter
		if rec == nil {
			continue
		}

		if err := buf.Insert(rec); err != nil {
			done <- err
			return
		}
		if buf.IsFull() {
			*records = append(*records, buf.Flush()...)
		}
	}

	done <- nil
}

// handleStderr reads from stderr and logs whatever the decoder reports.
func (r *Runner) handleStderr(stderr io.Reader, done chan<- error) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r.logger.Warn(fmt.Sprintf("%s >> %s", r.command, line)) // simple logging here
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: error reading stderr: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}

// handleCmdWait waits for the decoder to exit and reports its error.
func (r *Runner) handleCmdWait(cmd *exec.Cmd, done chan<- error) {
	if err := cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		done <- fmt.Errorf("decoder exited with error: %w", err)
		return
	}

	done <- nil
}
