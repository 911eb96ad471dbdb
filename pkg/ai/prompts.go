package ai

// ExtractTripletsPrompt is the system prompt for triplet extraction from a
// document chunk. Placeholders: preamble, max triplets, entity types,
// relation types.
const ExtractTripletsPrompt = `%s
You extract knowledge graph triplets from text.

From the text provided by the user, extract up to %d triplets of the form
(head, head_type, relation, tail, tail_type).

Rules:
- head and tail are entity surface forms exactly as they appear in the text.
- head_type and tail_type MUST be one of: %s
- relation SHOULD be one of: %s
- Skip triplets where either entity is a pronoun or an unresolvable reference.
- Return ONLY a JSON array of objects with keys "head", "head_type",
  "relation", "tail", "tail_type". Return [] if the text contains no
  extractable entities.`

// ExtractKeywordsPrompt asks for search keywords from a user question.
// Placeholders: max keywords, question.
const ExtractKeywordsPrompt = `Extract up to %d search keywords from the question below.
Keywords are the entities, concepts, and proper names the question is about.
Return the keywords as a single line separated by '~' with no other text.

Question: %s`

// KeywordDelimiter separates keywords in the model's response.
const KeywordDelimiter = "~"

// RewriteQueryPrompt turns a conversational user message into a search
// query for a retriever system. Placeholder: the user message.
const RewriteQueryPrompt = `A question asked by a user needs to be answered by searching a retriever system.
Generate a search query based on the question.
If you cannot generate a search query, return the original user question.
DO NOT return anything besides the query.

Question: %s`

// AnswerWithContextPrompt grounds the model's answer in retrieved context.
// Placeholders: context, question.
const AnswerWithContextPrompt = `Answer the question using only the context below. If the context does not
contain the answer, say that you do not know rather than guessing.

Context:
%s

Question: %s`
