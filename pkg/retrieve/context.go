package retrieve

import (
	"sort"
	"strings"

	"graphling/pkg/store"
)

// Context block headers. Their wording is part of the answer prompt
// contract and stays stable.
const (
	tripletHeader       = "Information about relationships between important entities:"
	relatedChunkHeader  = "Related text content that may hold important information:"
	baselineChunkHeader = "More text content that may hold important information:"
)

type limits struct {
	triplets int
	chunks   int
}

// accumulate merges entity hits into bounded triplet and chunk lists.
// Hits are ranked by score descending with a lexicographic tie-break so
// the outcome does not depend on store iteration order. Duplicates keep
// their best-scored occurrence.
func accumulate(hits []store.EntityHit, l limits) (triplets []string, chunks []string) {
	ranked := append([]store.EntityHit(nil), hits...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Triplet != ranked[j].Triplet {
			return ranked[i].Triplet < ranked[j].Triplet
		}
		return ranked[i].Chunk < ranked[j].Chunk
	})

	seenTriplets := map[string]bool{}
	seenChunks := map[string]bool{}
	for _, hit := range ranked {
		switch {
		case hit.Triplet != "":
			if l.triplets <= 0 || len(triplets) == l.triplets || seenTriplets[hit.Triplet] {
				continue
			}
			seenTriplets[hit.Triplet] = true
			triplets = append(triplets, hit.Triplet)
		case hit.Chunk != "":
			if l.chunks <= 0 || len(chunks) == l.chunks || seenChunks[hit.Chunk] {
				continue
			}
			seenChunks[hit.Chunk] = true
			chunks = append(chunks, hit.Chunk)
		}
	}
	return triplets, chunks
}

// excludeSeen drops chunks that already appear in the related set, so
// the baseline block never repeats content.
func excludeSeen(chunks []string, seen []string) []string {
	if len(seen) == 0 {
		return chunks
	}
	known := make(map[string]bool, len(seen))
	for _, s := range seen {
		known[s] = true
	}
	var out []string
	for _, chunk := range chunks {
		if !known[chunk] {
			out = append(out, chunk)
		}
	}
	return out
}

// renderContext assembles the context block handed to the answer prompt.
// Sections for empty result parts are left out entirely.
func renderContext(result *Result) string {
	var b strings.Builder

	writeBlock := func(header string, lines []string) {
		if len(lines) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(header)
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	writeBlock(tripletHeader, result.Triplets)
	writeBlock(relatedChunkHeader, result.RelatedChunks)
	writeBlock(baselineChunkHeader, result.BaselineChunks)

	return strings.TrimRight(b.String(), "\n")
}
