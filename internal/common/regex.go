package common

import (
	"regexp"
	"sync"
)

var regexCache sync.Map // pattern -> *regexp.Regexp

// CompileRegex compiles a pattern once and reuses the result across goroutines.
func CompileRegex(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := regexCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MatchRegex compiles and matches a regex pattern against a string.
// Returns an error if the pattern is invalid.
func MatchRegex(pattern, text string) (bool, error) {
	re, err := CompileRegex(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
