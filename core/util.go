package core

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

func DataRoot() string {
	if root := os.Getenv("DATA_ROOT"); root != "" {
		return root
	}
	return filepath.Join(".", "data")
}

func NewID() string { return uuid.NewString() }

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func FormatTime(sec float64) string {
	sec = math.Max(sec, 0)
	m := int(sec) / 60
	s := int(sec) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func FormatRange(start, end float64) string {
	return FormatTime(start) + "-" + FormatTime(end)
}

var nonLetter = regexp.MustCompile(`[^a-zA-Z0-9\p{Han}]+`)
var stops = map[string]struct{}{"the": {}, "and": {}, "a": {}, "an": {}, "of": {}, "to": {}, "in": {}, "is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "that": {}, "this": {}, "it": {}, "as": {}, "at": {}, "be": {}, "by": {}, "from": {}, "i": {}, "you": {}, "we": {}, "was": {}, "so": {}, "but": {}, "not": {}, "what": {}, "my": {}, "me": {}, "your": {}, "they": {}, "he": {}, "she": {}}

// Tokenize lowercases, strips punctuation and drops stopwords.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	s = nonLetter.ReplaceAllString(s, " ")
	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, ok := stops[p]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
