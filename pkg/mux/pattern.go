package mux

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// pattern is a compiled route pattern.
//
// Supported forms:
//   - exact: "/api/users"
//   - named params: "/users/:id" or "/users/{id}"
//   - single segment wildcard: "/users/*/posts", captured as "0", "1", ...
//   - trailing wildcard: "/static/*", capturing the rest of the path
//   - segment globs: "/files/*.json" or "/v[12]/items"
//   - deep globs: "/assets/**/*.css", matched on the whole path
//
// "", "*" and "/*" match every path. Deep globs cannot be used as mount
// prefixes.
type pattern struct {
	raw      string
	any      bool
	deep     bool
	segments []segment
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
	segGlob
	segRest
)

type segment struct {
	kind  segmentKind
	value string
}

func compilePattern(raw string) (*pattern, error) {
	p := &pattern{raw: raw}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" || trimmed == "*" {
		p.any = true
		return p, nil
	}

	if strings.Contains(trimmed, "**") {
		if !doublestar.ValidatePattern(trimmed) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
		}
		p.deep = true
		return p, nil
	}

	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPattern, raw)
		case strings.HasPrefix(part, ":") && len(part) > 1:
			p.segments = append(p.segments, segment{kind: segParam, value: part[1:]})
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2:
			p.segments = append(p.segments, segment{kind: segParam, value: part[1 : len(part)-1]})
		case part == "*" && i == len(parts)-1:
			p.segments = append(p.segments, segment{kind: segRest})
		case part == "*":
			p.segments = append(p.segments, segment{kind: segWildcard})
		case strings.ContainsAny(part, "*?[{"):
			if !doublestar.ValidatePattern(part) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, raw)
			}
			p.segments = append(p.segments, segment{kind: segGlob, value: part})
		default:
			p.segments = append(p.segments, segment{kind: segLiteral, value: part})
		}
	}
	return p, nil
}

// match reports whether path matches p as a whole.
func (p *pattern) match(path string) (map[string]string, bool) {
	params, _, ok := p.walk(path, false)
	return params, ok
}

// matchPrefix reports whether path starts with p, on segment boundaries.
// It returns the matched prefix so a mount point can strip it.
func (p *pattern) matchPrefix(path string) (map[string]string, string, bool) {
	params, consumed, ok := p.walk(path, true)
	if !ok {
		return nil, "", false
	}
	return params, consumed, true
}

func (p *pattern) walk(path string, prefix bool) (map[string]string, string, bool) {
	params := map[string]string{}
	trimmed := strings.Trim(path, "/")

	if p.any {
		if !prefix {
			params["0"] = trimmed
		}
		return params, "", true
	}

	if p.deep {
		if prefix {
			return nil, "", false
		}
		ok, err := doublestar.Match(strings.Trim(p.raw, "/"), trimmed)
		if err != nil || !ok {
			return nil, "", false
		}
		return params, "", true
	}

	var parts []string
	if trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	wildcards := 0
	for i, seg := range p.segments {
		if seg.kind == segRest {
			params[strconv.Itoa(wildcards)] = strings.Join(parts[min(i, len(parts)):], "/")
			if prefix {
				return params, "/" + strings.Join(parts[:min(i, len(parts))], "/"), true
			}
			return params, "", true
		}
		if i >= len(parts) {
			return nil, "", false
		}
		part := parts[i]
		switch seg.kind {
		case segLiteral:
			if part != seg.value {
				return nil, "", false
			}
		case segParam:
			params[seg.value] = part
		case segWildcard:
			params[strconv.Itoa(wildcards)] = part
			wildcards++
		case segGlob:
			ok, err := doublestar.Match(seg.value, part)
			if err != nil || !ok {
				return nil, "", false
			}
		}
	}

	if len(parts) != len(p.segments) && !prefix {
		return nil, "", false
	}
	return params, "/" + strings.Join(parts[:len(p.segments)], "/"), true
}
