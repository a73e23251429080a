// Package index provides the TF-IDF lexical index used as the always-available
// retrieval path over the code catalog.
package index

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Document is the immutable text representation of a code record. One
// document exists per unique code + time-slot key.
type Document struct {
	ID   string // code|slot compound key
	Code string
	Text string
}

// Match is one ranked search hit.
type Match struct {
	ID    string
	Code  string
	Score float64
}

// minScore is the similarity floor below which hits are treated as noise.
const minScore = 0.01

// Lexical is a TF-IDF index with cosine-similarity ranked retrieval. It is
// built once over the whole catalog and read-only afterward; a full corpus
// scan per query is fine at catalog scale.
type Lexical struct {
	docs    []Document
	vectors []map[string]float64
	idf     map[string]float64
}

// Build constructs the index from the given documents.
func Build(docs []Document) *Lexical {
	idx := &Lexical{
		docs: docs,
		idf:  make(map[string]float64),
	}

	// Document frequency per term.
	df := make(map[string]int)
	tokenized := make([][]string, len(docs))
	for i, doc := range docs {
		tokens := Tokenize(doc.Text)
		tokenized[i] = tokens

		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	// Smoothed IDF keeps every weight positive.
	n := float64(len(docs))
	for term, count := range df {
		idx.idf[term] = math.Log((n+1)/float64(count+1)) + 1
	}

	// Length-normalized TF times IDF per document.
	idx.vectors = make([]map[string]float64, len(docs))
	for i, tokens := range tokenized {
		vec := make(map[string]float64)
		if len(tokens) > 0 {
			inc := 1.0 / float64(len(tokens))
			for _, tok := range tokens {
				vec[tok] += inc
			}
			for term := range vec {
				vec[term] *= idx.idf[term]
			}
		}
		idx.vectors[i] = vec
	}

	return idx
}

// Search returns up to topK documents ranked by cosine similarity against
// the query, scores strictly above the noise floor, descending.
func (idx *Lexical) Search(query string, topK int) []Match {
	if topK <= 0 {
		return nil
	}

	queryVec := idx.queryVector(query)
	if len(queryVec) == 0 {
		return nil
	}

	matches := make([]Match, 0, topK)
	for i, docVec := range idx.vectors {
		score := cosine(queryVec, docVec)
		if score <= minScore {
			continue
		}
		matches = append(matches, Match{
			ID:    idx.docs[i].ID,
			Code:  idx.docs[i].Code,
			Score: score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Size returns the number of indexed documents.
func (idx *Lexical) Size() int {
	return len(idx.docs)
}

// queryVector builds a TF-IDF vector for the query against the corpus IDF
// table. Terms absent from the corpus are ignored.
func (idx *Lexical) queryVector(query string) map[string]float64 {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	vec := make(map[string]float64)
	inc := 1.0 / float64(len(tokens))
	for _, tok := range tokens {
		if _, ok := idx.idf[tok]; !ok {
			continue
		}
		vec[tok] += inc
	}
	for term := range vec {
		vec[term] *= idx.idf[term]
	}
	return vec
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// Tokenize lowercases, strips punctuation, and drops single-character tokens.
func Tokenize(text string) []string {
	text = nonWord.ReplaceAllString(strings.ToLower(text), " ")

	var tokens []string
	for _, field := range strings.Fields(text) {
		if len(field) < 2 {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// cosine computes cosine similarity between two sparse vectors.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}

	return dot / (norm(a) * norm(b))
}

func norm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
