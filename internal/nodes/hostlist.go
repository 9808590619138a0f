package nodes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadHostlist = errors.New("malformed hostlist")

// ExpandHostlist expands a compressed hostlist as found in SLURM_JOB_NODELIST,
// e.g. "node[01-03,07],gpu5" becomes node01 node02 node03 node07 gpu5. Zero
// padding of a range is kept and several bracket groups in one name expand
// to their cartesian product.
func ExpandHostlist(list string) ([]string, error) {
	items, err := splitTop(list)
	if err != nil {
		return nil, err
	}

	hosts := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		expanded, err := expandItem(item)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, expanded...)
	}
	return hosts, nil
}

// splitTop splits on commas that are not inside brackets.
func splitTop(list string) ([]string, error) {
	var items []string
	depth, start := 0, 0
	for i, c := range list {
		switch c {
		case '[':
			depth++
			if depth > 1 {
				return nil, fmt.Errorf("%w: nested bracket in %q", ErrBadHostlist, list)
			}
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced bracket in %q", ErrBadHostlist, list)
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced bracket in %q", ErrBadHostlist, list)
	}
	return append(items, strings.TrimSpace(list[start:])), nil
}

func expandItem(item string) ([]string, error) {
	open := strings.IndexByte(item, '[')
	if open < 0 {
		if strings.IndexByte(item, ']') >= 0 {
			return nil, fmt.Errorf("%w: unbalanced bracket in %q", ErrBadHostlist, item)
		}
		return []string{item}, nil
	}
	end := strings.IndexByte(item[open:], ']')
	if end < 0 {
		return nil, fmt.Errorf("%w: unbalanced bracket in %q", ErrBadHostlist, item)
	}
	end += open

	prefix, body, rest := item[:open], item[open+1:end], item[end+1:]
	if body == "" {
		return nil, fmt.Errorf("%w: empty range in %q", ErrBadHostlist, item)
	}

	tails, err := expandItem(rest)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, part := range strings.Split(body, ",") {
		ids, err := expandRange(part)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", item, err)
		}
		for _, id := range ids {
			for _, tail := range tails {
				hosts = append(hosts, prefix+id+tail)
			}
		}
	}
	return hosts, nil
}

func expandRange(part string) ([]string, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	if !isDigits(lo) || (isRange && !isDigits(hi)) {
		return nil, fmt.Errorf("%w: bad range %q", ErrBadHostlist, part)
	}
	if !isRange {
		return []string{lo}, nil
	}

	a, err := strconv.Atoi(lo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHostlist, err)
	}
	b, err := strconv.Atoi(hi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHostlist, err)
	}
	if b < a {
		return nil, fmt.Errorf("%w: descending range %q", ErrBadHostlist, part)
	}

	width := len(lo)
	ids := make([]string, 0, b-a+1)
	for n := a; n <= b; n++ {
		ids = append(ids, fmt.Sprintf("%0*d", width, n))
	}
	return ids, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
