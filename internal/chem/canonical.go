// Package chem provides the lightweight cheminformatics the evaluation
// loop needs: SMILES tokenization and canonicalization, hashed structural
// fingerprints and population-level metric aggregation.
package chem

import (
	"fmt"
	"sort"
	"strings"
)

// Tokenize splits a SMILES string into atom and symbol tokens. Two-letter
// organic subset atoms and bracket atoms are kept whole.
func Tokenize(smiles string) ([]string, error) {
	if smiles == "" {
		return nil, fmt.Errorf("smiles string is empty")
	}
	tokens := make([]string, 0, len(smiles))
	for i := 0; i < len(smiles); {
		c := smiles[i]
		switch {
		case c == '[':
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed bracket atom at offset %d", i)
			}
			tokens = append(tokens, smiles[i:i+end+1])
			i += end + 1
		case (c == 'C' || c == 'B') && i+1 < len(smiles) && (smiles[i+1] == 'l' || smiles[i+1] == 'r'):
			// Cl and Br
			tokens = append(tokens, smiles[i:i+2])
			i += 2
		default:
			tokens = append(tokens, string(c))
			i++
		}
	}
	return tokens, nil
}

// Canonical normalizes a SMILES string into a stable surrogate form so
// that trivially equivalent strings compare equal. It does not perform
// full graph canonicalization; it strips whitespace and renumbers ring
// closure digits in order of first appearance.
func Canonical(smiles string) (string, error) {
	trimmed := strings.TrimSpace(smiles)
	if trimmed == "" {
		return "", fmt.Errorf("smiles string is empty")
	}
	tokens, err := Tokenize(trimmed)
	if err != nil {
		return "", err
	}

	ringMap := make(map[string]int)
	var b strings.Builder
	for _, tok := range tokens {
		if len(tok) == 1 && tok[0] >= '0' && tok[0] <= '9' {
			id, ok := ringMap[tok]
			if !ok {
				id = len(ringMap) + 1
				ringMap[tok] = id
			}
			fmt.Fprintf(&b, "%d", id)
			continue
		}
		b.WriteString(tok)
	}
	return b.String(), nil
}

// Canonicalize maps SMILES strings to their canonical forms and returns
// the distinct set in sorted order, skipping strings that fail to parse.
// Applying it to its own output returns the same set.
func Canonicalize(smiles []string) []string {
	seen := make(map[string]struct{}, len(smiles))
	for _, s := range smiles {
		canon, err := Canonical(s)
		if err != nil {
			continue
		}
		seen[canon] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
