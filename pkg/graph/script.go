package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Graph labels and edge types.
const (
	LabelDocument = "DOCUMENT"
	LabelChunk    = "DOCUMENT_CHUNK"
	LabelEntity   = "ENTITY"

	EdgeContains    = "CONTAINS"
	EdgeMentionedIn = "MENTIONED_IN"
	EdgeMentions    = "MENTIONS"

	// DefaultRelation is used when a model-produced relation cannot be
	// turned into a valid edge type.
	DefaultRelation = "RELATED_TO"
)

// StatementKind discriminates the two mutation forms a script can hold.
type StatementKind string

const (
	MergeNode StatementKind = "merge_node"
	MergeEdge StatementKind = "merge_edge"
)

// Statement is one idempotent graph mutation. Node statements carry an
// alias that edge statements in the same script refer to. The structure
// is store-neutral: it renders to Cypher for graph databases and is
// interpreted directly by relational backends, and it round-trips through
// JSON for the extraction cache.
type Statement struct {
	Kind  StatementKind     `json:"kind"`
	Alias string            `json:"alias,omitempty"`
	Label string            `json:"label,omitempty"`
	ID    string            `json:"id,omitempty"`
	Props map[string]string `json:"props,omitempty"`
	From  string            `json:"from,omitempty"`
	To    string            `json:"to,omitempty"`
	Type  string            `json:"type,omitempty"`
}

// Script is an ordered list of mutations for one document. Replaying a
// script any number of times yields the same graph.
type Script struct {
	Source     string      `json:"source"`
	Statements []Statement `json:"statements"`
}

func (s *Script) mergeNode(alias, label, id string, props map[string]string) {
	s.Statements = append(s.Statements, Statement{
		Kind:  MergeNode,
		Alias: alias,
		Label: label,
		ID:    id,
		Props: props,
	})
}

func (s *Script) mergeEdge(from, edgeType, to string) {
	s.Statements = append(s.Statements, Statement{
		Kind: MergeEdge,
		From: from,
		To:   to,
		Type: edgeType,
	})
}

// Cypher renders the script as a single query so one round-trip applies
// the whole document subgraph.
func (s *Script) Cypher() string {
	var b strings.Builder
	for _, stmt := range s.Statements {
		switch stmt.Kind {
		case MergeNode:
			fmt.Fprintf(&b, "MERGE (%s:%s {id: %s})\n", stmt.Alias, stmt.Label, cypherString(stmt.ID))
			for _, key := range sortedKeys(stmt.Props) {
				fmt.Fprintf(&b, "SET %s.%s = %s\n", stmt.Alias, key, cypherString(stmt.Props[key]))
			}
		case MergeEdge:
			fmt.Fprintf(&b, "MERGE (%s)-[:%s]->(%s)\n", stmt.From, stmt.Type, stmt.To)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func cypherString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `'`)
	return `"` + s + `"`
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var invalidEdgeChar = regexp.MustCompile(`[^A-Z0-9_]`)

// SanitizeRelation turns a model-produced relation into a valid edge
// type: spaces and hyphens become underscores, the rest is uppercased and
// stripped of invalid characters. Unsalvageable input falls back to
// DefaultRelation.
func SanitizeRelation(relation string) string {
	r := strings.TrimSpace(relation)
	r = strings.NewReplacer(" ", "_", "-", "_").Replace(r)
	r = strings.ToUpper(r)
	r = invalidEdgeChar.ReplaceAllString(r, "")
	r = strings.Trim(r, "_")
	if r == "" {
		return DefaultRelation
	}
	return r
}

// BuildScript assembles the mutation script for one document: the
// document node, its chunks with CONTAINS edges, the deduplicated
// entities with mention edges in both directions, and the extracted
// relations between entities. Output order is deterministic so identical
// extractions produce identical scripts. Chunks without triplets are
// dropped unless emitEmpty is set.
func BuildScript(doc Document, triplets ChunkTriplets, entities map[string]Entity, emitEmpty bool) *Script {
	script := &Script{Source: doc.Source}

	script.mergeNode("d", LabelDocument, doc.ID, map[string]string{
		"source": doc.Source,
	})

	chunks := make([]Chunk, 0, len(triplets))
	for chunk := range triplets {
		if len(triplets[chunk]) == 0 && !emitEmpty {
			continue
		}
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Sequence < chunks[j].Sequence })

	chunkAlias := map[string]string{}
	for i, chunk := range chunks {
		alias := fmt.Sprintf("c%d", i)
		chunkAlias[chunk.ID] = alias
		script.mergeNode(alias, LabelChunk, chunk.ID, map[string]string{
			"name":       chunk.Name,
			"sequence":   strconv.Itoa(chunk.Sequence),
			"text":       chunk.Text,
			"documentId": doc.ID,
			"source":     doc.Source,
		})
		script.mergeEdge("d", EdgeContains, alias)
	}

	names := make([]string, 0, len(entities))
	for name, entity := range entities {
		if entity.Type == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	entityAlias := map[string]string{}
	for i, name := range names {
		entity := entities[name]
		alias := fmt.Sprintf("e%d", i)
		entityAlias[name] = alias
		script.mergeNode(alias, LabelEntity, entity.ID, map[string]string{
			"name":       entity.Name,
			"type":       entity.Type,
			"text":       entity.Text,
			"documentId": doc.ID,
			"source":     doc.Source,
		})

		mentions := make([]Chunk, 0, len(entity.MentionedIn))
		for _, chunk := range entity.MentionedIn {
			if _, ok := chunkAlias[chunk.ID]; ok {
				mentions = append(mentions, chunk)
			}
		}
		sort.Slice(mentions, func(i, j int) bool { return mentions[i].Sequence < mentions[j].Sequence })
		for _, chunk := range mentions {
			script.mergeEdge(alias, EdgeMentionedIn, chunkAlias[chunk.ID])
		}
	}

	seenMentions := map[string]bool{}
	seenRelations := map[string]bool{}
	for _, chunk := range chunks {
		rows := append([]TripletRow(nil), triplets[chunk]...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].String() < rows[j].String() })

		for _, row := range rows {
			head := entityAlias[CanonicalName(row.Head)]
			tail := entityAlias[CanonicalName(row.Tail)]
			if head == "" || tail == "" {
				continue
			}

			for _, entity := range []string{head, tail} {
				key := chunkAlias[chunk.ID] + ">" + entity
				if !seenMentions[key] {
					seenMentions[key] = true
					script.mergeEdge(chunkAlias[chunk.ID], EdgeMentions, entity)
				}
			}

			relation := SanitizeRelation(row.Relation)
			key := head + "|" + relation + "|" + tail
			if !seenRelations[key] {
				seenRelations[key] = true
				script.mergeEdge(head, relation, tail)
			}
		}
	}

	return script
}
