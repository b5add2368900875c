package shape

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// WordCount is one entry of a FrequencyTable
type WordCount struct {
	Word  string
	Count int
}

// FrequencyTable is ordered by descending count, ties in first-seen order.
// It serializes as a JSON object whose key order is the table order
type FrequencyTable []WordCount

// Count returns the count of word, zero when absent
func (t FrequencyTable) Count(word string) int {
	for _, wc := range t {
		if wc.Word == word {
			return wc.Count
		}
	}
	return 0
}

// Words returns the tokens in table order
func (t FrequencyTable) Words() []string {
	out := make([]string, len(t))
	for i, wc := range t {
		out[i] = wc.Word
	}
	return out
}

// MarshalJSON writes {"word":count,...} preserving order. An empty table is {}
func (t FrequencyTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, wc := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(wc.Word)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(wc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back in document order
func (t *FrequencyTable) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var out FrequencyTable
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return err
		}
		out = append(out, WordCount{Word: tok.(string), Count: n})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}

// Tokenize splits text on runs of characters outside [A-Za-z0-9_], lowercases
// each piece and keeps the ones that are words: at least one ASCII letter or
// digit, and longer than one character unless the token is "i" or "a"
func Tokenize(text string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) }) {
		tok = strings.ToLower(tok)
		if keepToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// BuildFrequencyTable counts tokens across texts in order and stable sorts by count
func BuildFrequencyTable(texts []string) FrequencyTable {
	index := make(map[string]int)
	var table FrequencyTable
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			if i, ok := index[tok]; ok {
				table[i].Count++
				continue
			}
			index[tok] = len(table)
			table = append(table, WordCount{Word: tok, Count: 1})
		}
	}
	slices.SortStableFunc(table, func(a, b WordCount) int { return b.Count - a.Count })
	if table == nil {
		return FrequencyTable{}
	}
	return table
}

func isWordRune(r rune) bool {
	return r == '_' || isAlnum(r)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func keepToken(tok string) bool {
	if tok == "" || !strings.ContainsFunc(tok, isAlnum) {
		return false
	}
	return len(tok) > 1 || tok == "i" || tok == "a"
}
