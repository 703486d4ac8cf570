package prompts

// NotFoundAnswer is the exact reply for questions the material cannot answer.
const NotFoundAnswer = "Not found in the provided material."

// NoPreviousWrong fills the adaptive prompt when the student has no misses.
const NoPreviousWrong = "No previous wrong questions."

const quizFormat = `Format:
[
  {
    "question": "...",
    "options": {
      "A": "...",
      "B": "...",
      "C": "...",
      "D": "..."
    },
    "answer": "A",
    "explanation": "..."
  }
]`

// GroundedAnswer asks for an answer drawn only from the labelled context.
var GroundedAnswer = New("grounded-answer", 1, []string{"context", "question"}, `
You are a faculty-material grounded learning assistant.

You MUST answer using ONLY the context below.

If the answer exists anywhere in the context, you MUST answer it.
Only if the answer is completely absent, reply exactly:
`+NotFoundAnswer+`

Context:
{{.context}}

Question:
{{.question}}

Give a direct answer in 1-5 lines, then mention chunks used like:
(Used: Chunk 2)

Answer:
`)

// Quiz asks for count multiple-choice questions as a JSON array.
var Quiz = New("quiz", 1, []string{"count", "material"}, `
You are a quiz generator.

Create {{.count}} multiple-choice questions (MCQs) strictly from the given material.

Rules:
- Each question must have 4 options (A, B, C, D)
- Provide correct answer key
- Provide 1-line explanation
- Do NOT use outside knowledge
- Output must be valid JSON only (no extra text)

`+quizFormat+`

Material:
{{.material}}
`)

// AdaptiveQuiz targets the questions a student missed.
var AdaptiveQuiz = New("adaptive-quiz", 2, []string{"count", "missed", "material"}, `
You are an adaptive quiz generator.

A student previously got these questions wrong:
{{.missed}}

Task:
Generate {{.count}} new MCQs focused on the student's weak areas.

Rules:
- Do NOT repeat the questions above; test the same concepts with new questions.
- If the list above says "`+NoPreviousWrong+`", write general questions covering the material.
- Questions must be strictly based on the given material.
- 4 options (A,B,C,D)
- Give correct answer + 1-line explanation
- Output ONLY valid JSON array (no extra text)

`+quizFormat+`

Material:
{{.material}}
`)

// Summary condenses material into a summary, topics and terms.
var Summary = New("summary", 1, []string{"material"}, `
You are a study assistant.

Summarize the following faculty material into:
1. Short summary (5-7 lines)
2. Key topics covered (bullet points)
3. Important terms (bullet list)

Material:
{{.material}}
`)

// Roadmap turns missed questions into a study plan.
var Roadmap = New("roadmap", 1, []string{"wrong"}, `
You are a personalized learning assistant.

A student attempted a quiz from faculty material and got these questions wrong:
{{.wrong}}

Generate:
1. Weak topics inferred (bullet list)
2. What to revise (bullet list)
3. 5-step study roadmap (short)

Keep it simple and student-friendly.
`)

// All lists every template in the catalog.
func All() []*Template {
	return []*Template{GroundedAnswer, Quiz, AdaptiveQuiz, Summary, Roadmap}
}
