package logparse

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

// Field names one value extracted from an accounting record.
type Field int

const (
	FieldDate Field = iota
	FieldUser
	FieldExitStatus
	FieldReqWalltime
	FieldReqMem
	FieldReqNodes
	FieldReqCPUs
	FieldReqGPUs
	FieldUsedWalltime
	FieldUsedMem
	FieldUsedCPUTime

	numFields
)

var fieldNames = [numFields]string{
	FieldDate:         "date",
	FieldUser:         "user",
	FieldExitStatus:   "exit_status",
	FieldReqWalltime:  "req_walltime",
	FieldReqMem:       "req_mem",
	FieldReqNodes:     "req_nodes",
	FieldReqCPUs:      "req_cpus",
	FieldReqGPUs:      "req_gpus",
	FieldUsedWalltime: "used_walltime",
	FieldUsedMem:      "used_mem",
	FieldUsedCPUTime:  "used_cput",
}

// String returns the field name.
func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Default is the value used when a record does not carry the field.
func (f Field) Default() string {
	switch f {
	case FieldUser:
		return "server"
	case FieldReqGPUs:
		return "0"
	default:
		return "1"
	}
}

// Variant selects the accounting record dialect.
type Variant int

const (
	// VariantAccounting is the server_priv/accounting file format.
	VariantAccounting Variant = iota

	// VariantServer is the server_logs format. It carries no requested
	// walltime, memory or node count.
	VariantServer
)

type extractor struct {
	field Field
	re    *regexp.Regexp
}

var (
	exitStatusRe = regexp.MustCompile(`Exit_status=-*\d+`)

	accountingSchema = []extractor{
		{FieldDate, regexp.MustCompile(`(^[0-9/]{10})`)},
		{FieldUser, regexp.MustCompile(`user=(\w+)`)},
		{FieldExitStatus, regexp.MustCompile(`Exit_status=(-?\d+)`)},
		{FieldReqWalltime, regexp.MustCompile(`Resource_List\.walltime=([0-9:]+)`)},
		{FieldReqMem, regexp.MustCompile(`Resource_List\.mem=(\d+\w+)`)},
		{FieldReqNodes, regexp.MustCompile(`Resource_List\.nodes=(\d+)`)},
		{FieldReqCPUs, regexp.MustCompile(`Resource_List.+ppn=(\d+)`)},
		{FieldReqGPUs, regexp.MustCompile(`Resource_List.+gpus=(\d+)`)},
		{FieldUsedWalltime, regexp.MustCompile(`resources_used\.walltime=([0-9:]+)`)},
		{FieldUsedMem, regexp.MustCompile(`resources_used\.mem=(\d+\w+)`)},
		{FieldUsedCPUTime, regexp.MustCompile(`resources_used\.cput=(\d+)`)},
	}

	serverSchema = []extractor{
		{FieldDate, regexp.MustCompile(`(^[0-9/]{10})`)},
		{FieldUser, regexp.MustCompile(`user=(\w+)`)},
		{FieldExitStatus, regexp.MustCompile(`Exit_status=(-?\d+)`)},
		{FieldReqCPUs, regexp.MustCompile(`Resource_List.+ppn=(\d+)`)},
		{FieldReqGPUs, regexp.MustCompile(`Resource_List.+gpu=(\d+)`)},
		{FieldUsedWalltime, regexp.MustCompile(`resources_used\.walltime=([0-9:]+)`)},
		{FieldUsedMem, regexp.MustCompile(`resources_used\.mem=(\d+\w+)`)},
		{FieldUsedCPUTime, regexp.MustCompile(`resources_used\.cput=(\d+)`)},
	}
)

func schemaFor(v Variant) []extractor {
	if v == VariantServer {
		return serverSchema
	}
	return accountingSchema
}

// Entry is one finished-job accounting record. Every field has a value;
// fields missing from the line hold their Default.
type Entry struct {
	values [numFields]string
	found  [numFields]bool
}

// Get returns the value of f.
func (e Entry) Get(f Field) string {
	return e.values[f]
}

// Found reports whether f was present on the line.
func (e Entry) Found(f Field) bool {
	return e.found[f]
}

// Set overrides the value of f.
func (e *Entry) Set(f Field, v string) {
	e.values[f] = v
	e.found[f] = true
}

// ParseAccountingLine extracts a record from a single accounting line. It
// reports false for lines that do not describe a finished job.
func ParseAccountingLine(line string, v Variant) (Entry, bool) {
	if !exitStatusRe.MatchString(line) {
		return Entry{}, false
	}

	var e Entry
	for f := Field(0); f < numFields; f++ {
		e.values[f] = f.Default()
	}
	for _, x := range schemaFor(v) {
		if m := x.re.FindStringSubmatch(line); len(m) > 1 {
			e.values[x.field] = m[1]
			e.found[x.field] = true
		}
	}
	return e, true
}

// ParseAccounting reads every finished-job record from an accounting file.
func ParseAccounting(r io.Reader, v Variant) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if e, ok := ParseAccountingLine(scanner.Text(), v); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read accounting records: %w", err)
	}
	return entries, nil
}
