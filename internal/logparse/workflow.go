package logparse

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

// submittedRe matches the scheduler submission lines a workflow engine
// writes to its logfile, e.g.
//
//	Submitted job 12 with external jobid '4711215.torque01'.
var submittedRe = regexp.MustCompile(`Submitted job \d+ with external jobid '(\d+)\.`)

// ParseWorkflowLog returns the scheduler job IDs submitted by a pipeline run,
// in submission order and without duplicates.
func ParseWorkflowLog(r io.Reader) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		id := firstGroup(submittedRe, scanner.Text())
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read workflow log: %w", err)
	}
	return ids, nil
}
