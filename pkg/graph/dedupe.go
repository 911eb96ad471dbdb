package graph

import "sort"

// Deduplicate collapses the raw triplet rows of all chunks into canonical
// entities keyed by canonical name. Chunks are processed in sequence
// order, so the first surface form and type seen for a name win
// deterministically; later mentions only extend the MentionedIn set.
func Deduplicate(triplets ChunkTriplets) map[string]Entity {
	entities := map[string]Entity{}

	chunks := make([]Chunk, 0, len(triplets))
	for chunk := range triplets {
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Sequence < chunks[j].Sequence })

	record := func(surface, entityType string, chunk Chunk) {
		name := CanonicalName(surface)
		if name == "" {
			return
		}
		entity, ok := entities[name]
		if !ok {
			entity = Entity{
				Name:        name,
				Type:        entityType,
				ID:          ContentID(name),
				Text:        surface,
				MentionedIn: map[string]Chunk{},
			}
		}
		entity.MentionedIn[chunk.ID] = chunk
		entities[name] = entity
	}

	for _, chunk := range chunks {
		for _, row := range triplets[chunk] {
			record(row.Head, row.HeadType, chunk)
			record(row.Tail, row.TailType, chunk)
		}
	}

	return entities
}
