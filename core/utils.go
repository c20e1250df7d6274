package core

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify lowers s and joins its alphanumeric runs with dashes: "Lesson 1: Greetings" -> "lesson-1-greetings".
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(CleanString(s, true), "-"), "-")
}

// Getwd returns the project root (the closest parent holding a go.mod).
// go-test changes the working directory to the test package being run, so the cwd cannot be used as is.
// Falls back to the cwd when no go.mod is found (deployed binaries).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
