package inventory

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// QueryFields are the nvidia-smi fields requested, in output order.
const QueryFields = "index,memory.used,memory.total"

// GPU is one device as reported by the query utility.
type GPU struct {
	Index         string `json:"gpu"`
	MemoryUsedMB  int    `json:"memory_used_MB"`
	MemoryTotalMB int    `json:"memory_total_MB"`
}

// Parse reads nvidia-smi csv,noheader,nounits output: one device per
// non-empty line, three comma separated fields. Any other line is an error.
func Parse(output []byte) ([]GPU, error) {
	gpus := []GPU{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d: %q", lineNo, len(parts), line)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		used, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid memory.used %q", lineNo, parts[1])
		}
		total, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid memory.total %q", lineNo, parts[2])
		}

		gpus = append(gpus, GPU{Index: parts[0], MemoryUsedMB: used, MemoryTotalMB: total})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return gpus, nil
}
