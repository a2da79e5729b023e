package sierramarc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	prefixLen = 5

	// MetricRecordsRead counts reader steps, labelled with LabelOutcome and
	// LabelLibrary.
	MetricRecordsRead = "records_read_total"
	LabelOutcome      = "outcome"
	LabelLibrary      = "library"

	OutcomeOK           = "ok"
	OutcomeParseError   = "parse_error"
	OutcomeFramingError = "framing_error"

	logMsgFramingFailed = "record framing failed, stopping"
	logMsgParseFailed   = "record could not be parsed, skipping"
	logMsgStreamDone    = "end of stream"
	logAttrPosition     = "position"
	logAttrOffset       = "offset"
	logAttrError        = "error"
	logAttrRecords      = "records"
)

// Logger is satisfied by *slog.Logger and most structured loggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector receives counters about the records read.
type MetricsCollector interface {
	IncrementCounter(metric string, labels map[string]string)
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger of the Reader. Parse failures are logged at
// warn level, framing failures at error level.
func WithLogger(logger Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector of the Reader.
func WithMetrics(metrics MetricsCollector) Option {
	return func(r *Reader) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// WithBibOptions sets options applied to every Bib the Reader returns.
func WithBibOptions(opts ...BibOption) Option {
	return func(r *Reader) {
		r.bibOpts = append(r.bibOpts, opts...)
	}
}

// Reader will iterate over a stream of MARC records using the Next() and
// Value() methods. A record that cannot be parsed does not stop the
// iteration; its error is available from Value and Err until the next
// call to Next. A framing error (truncated record, bad length prefix or
// missing record terminator) is reported the same way but ends the
// iteration on the following call to Next. Use NewReader to create a
// Reader. A Reader must not be used from multiple goroutines.
type Reader struct {
	r       *bufio.Reader
	library Library
	bibOpts []BibOption
	logger  Logger
	metrics MetricsCollector

	current *Bib
	err     error
	stop    bool
	done    bool
	pos     int
	offset  int64
}

// NewReader creates and returns a new Reader for records of library lib.
func NewReader(r io.Reader, lib Library, opts ...Option) (*Reader, error) {
	if err := lib.validate(); err != nil {
		return nil, err
	}
	reader := &Reader{
		r:       bufio.NewReader(r),
		library: lib,
		logger:  nopLogger{},
		metrics: nopMetrics{},
		pos:     -1,
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader, nil
}

// Next advances the Reader to the next record, which will be available
// through the Value method. It returns false when the end of the stream
// has been reached or a framing error was reported by the previous step.
func (m *Reader) Next() bool {
	if m.done {
		return false
	}
	if m.stop {
		m.finish()
		return false
	}
	m.current, m.err = nil, nil

	start := m.offset
	head := make([]byte, prefixLen)
	n, err := io.ReadFull(m.r, head)
	m.offset += int64(n)
	if n == 0 && errors.Is(err, io.EOF) {
		m.finish()
		return false
	}
	m.pos++
	if err != nil {
		return m.framingFailed(start, readErr(err))
	}

	length, err := strconv.Atoi(string(head))
	if err != nil || length < leaderLen {
		return m.framingFailed(start, fmt.Errorf("%w: %q", ErrRecordLengthInvalid, head))
	}

	chunk := make([]byte, length)
	copy(chunk, head)
	n, err = io.ReadFull(m.r, chunk[prefixLen:])
	m.offset += int64(n)
	if err != nil {
		return m.framingFailed(start, readErr(err))
	}
	if chunk[length-1] != rt {
		return m.framingFailed(start, ErrEndOfRecordNotFound)
	}

	bib, err := ParseBib(chunk, m.library, m.bibOpts...)
	if err != nil {
		m.err = &ReadError{Position: m.pos, Offset: start, Err: err}
		m.logger.Warn(logMsgParseFailed, logAttrPosition, m.pos, logAttrOffset, start, logAttrError, err)
		m.count(OutcomeParseError)
		return true
	}
	m.current = bib
	m.count(OutcomeOK)
	return true
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedRecord
	}
	return err
}

func (m *Reader) framingFailed(start int64, err error) bool {
	m.err = &ReadError{Position: m.pos, Offset: start, Err: err}
	m.stop = true
	m.logger.Error(logMsgFramingFailed, logAttrPosition, m.pos, logAttrOffset, start, logAttrError, err)
	m.count(OutcomeFramingError)
	return true
}

func (m *Reader) finish() {
	m.done = true
	m.current = nil
	m.logger.Debug(logMsgStreamDone, logAttrRecords, m.pos+1, logAttrOffset, m.offset)
}

func (m *Reader) count(outcome string) {
	m.metrics.IncrementCounter(MetricRecordsRead, map[string]string{
		LabelOutcome: outcome,
		LabelLibrary: string(m.library),
	})
}

// Value returns the current Bib and the error of the current step. The
// Bib is nil whenever the error is not.
func (m *Reader) Value() (*Bib, error) {
	return m.current, m.err
}

// Err returns the error of the current step. After Next returned false it
// returns the error that ended the iteration, if any.
func (m *Reader) Err() error {
	return m.err
}

// Position returns the zero based index of the current record.
func (m *Reader) Position() int {
	return m.pos
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) IncrementCounter(string, map[string]string) {}
