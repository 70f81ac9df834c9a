package parser

import (
	"regexp"
	"strings"
)

// Strategy extracts candidate JSON documents from raw model text, in the
// order they should be tried. No candidates means the strategy does not apply.
type Strategy struct {
	Name    string
	Extract func(raw string) []string
}

// DefaultStrategies is the repair chain, tried in order.
var DefaultStrategies = []Strategy{
	{Name: "whole", Extract: extractWhole},
	{Name: "fenced", Extract: extractFenced},
	{Name: "braces", Extract: extractBraces},
}

func extractWhole(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return []string{s}
}

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

// extractFenced returns every non-empty fenced block; replies often put a
// prose note in a fence ahead of the JSON one.
func extractFenced(raw string) []string {
	var out []string
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func extractBraces(raw string) []string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil
	}
	return []string{raw[start : end+1]}
}
