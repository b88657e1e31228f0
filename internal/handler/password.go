package handler

import (
	"bufio"
	_ "embed"
	"regexp"
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	maxSimilarity     = 0.7
)

//go:embed common_passwords.txt
var commonPasswordList string

var commonPasswords = func() map[string]struct{} {
	set := make(map[string]struct{})
	sc := bufio.NewScanner(strings.NewReader(commonPasswordList))
	for sc.Scan() {
		if p := strings.TrimSpace(sc.Text()); p != "" && !strings.HasPrefix(p, "#") {
			set[strings.ToLower(p)] = struct{}{}
		}
	}
	return set
}()

var nonWord = regexp.MustCompile(`\W+`)

// passwordProblems returns every password rule the candidate breaks, in the
// order similarity, length, common, numeric.
func passwordProblems(password, username string) []string {
	var problems []string
	if tooSimilar(password, username) {
		problems = append(problems, "The password is too similar to the username.")
	}
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		problems = append(problems, "This password is too common.")
	}
	if isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// tooSimilar compares the password with the username and each of its
// word-separated parts, using a character-multiset ratio.
func tooSimilar(password, username string) bool {
	if username == "" {
		return false
	}
	pw := strings.ToLower(password)
	lower := strings.ToLower(username)
	parts := append(nonWord.Split(lower, -1), lower)
	for _, part := range parts {
		if part == "" || exceedsLengthRatio(pw, part) {
			continue
		}
		if quickRatio(pw, part) >= maxSimilarity {
			return true
		}
	}
	return false
}

// exceedsLengthRatio skips parts far shorter than the password, which could
// never reach the similarity threshold.
func exceedsLengthRatio(password, part string) bool {
	pwLen := len([]rune(password))
	partLen := len([]rune(part))
	bound := maxSimilarity / 2 * float64(pwLen)
	return pwLen >= 10*partLen && float64(partLen) < bound
}

func quickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}
	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}
