package sshd

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"authwatch/pkg/models"
)

var (
	// ErrNoMatch is returned for lines that do not have the sshd password shape.
	ErrNoMatch = errors.New("line does not match sshd password format")
	// ErrInvalidTimestamp is returned when the matched date/time is not a real calendar instant.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrInvalidNumber is returned when pid or port does not fit an int.
	ErrInvalidNumber = errors.New("invalid numeric field")
)

var linePattern = regexp.MustCompile(
	`([A-Za-z]{3})\s+(\d{1,2})\s+(\d{2}:\d{2}:\d{2})\s+(\S+)\s+sshd\[(\d+)\]:\s+` +
		`(Accepted|Failed)\s+password\s+for\s+([A-Za-z0-9._-]+)\s+from\s+` +
		`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\s+port\s+(\d+)`,
)

const timestampLayout = "2006 Jan 2 15:04:05"

// ParseError describes one rejected line.
type ParseError struct {
	Line   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Record holds the raw fields extracted from one line.
type Record struct {
	Timestamp time.Time
	Host      string
	Status    models.Status
	Username  string
	SourceIP  string
	Port      int
	PID       int
}

// Options configures a Parser.
type Options struct {
	// Year is applied to every timestamp because syslog lines omit it.
	// Zero means the current calendar year. Logs that cross a year boundary
	// are mis-dated unless the caller supplies the right year.
	Year     int
	Location *time.Location
}

// Parser extracts records from sshd auth log lines.
type Parser struct {
	year int
	loc  *time.Location
}

// NewParser creates a parser.
func NewParser(opts Options) *Parser {
	if opts.Year <= 0 {
		opts.Year = time.Now().Year()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Parser{year: opts.Year, loc: opts.Location}
}

// Year returns the year applied to parsed timestamps.
func (p *Parser) Year() int {
	return p.year
}

// ParseRecord extracts the raw fields of one line.
func (p *Parser) ParseRecord(line string) (Record, error) {
	trimmed := strings.TrimSpace(line)
	m := linePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Record{}, &ParseError{Line: trimmed, Reason: "no match", Err: ErrNoMatch}
	}
	month, day, clock, host, pid, status, username, ip, port := m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8], m[9]

	ts, err := time.ParseInLocation(timestampLayout, fmt.Sprintf("%d %s %s %s", p.year, month, day, clock), p.loc)
	if err != nil {
		return Record{}, &ParseError{Line: trimmed, Reason: fmt.Sprintf("invalid timestamp: %v", err), Err: ErrInvalidTimestamp}
	}

	pidValue, err := strconv.Atoi(pid)
	if err != nil {
		return Record{}, &ParseError{Line: trimmed, Reason: "invalid pid", Err: ErrInvalidNumber}
	}
	portValue, err := strconv.Atoi(port)
	if err != nil {
		return Record{}, &ParseError{Line: trimmed, Reason: "invalid port", Err: ErrInvalidNumber}
	}

	return Record{
		Timestamp: ts,
		Host:      host,
		Status:    models.Status(status),
		Username:  username,
		SourceIP:  ip,
		Port:      portValue,
		PID:       pidValue,
	}, nil
}

// Parse converts one raw line into a normalized Event.
func (p *Parser) Parse(line string) (models.Event, error) {
	rec, err := p.ParseRecord(line)
	if err != nil {
		return models.Event{}, err
	}
	return Normalize(rec), nil
}
