package generator

import (
	"strings"
	"text/template"

	"github.com/abhisek/findata/internal/llm"
)

// DefaultSystemPrompt frames the model as a financial analyst writing
// evaluation data.
const DefaultSystemPrompt = `You are a financial analyst building an evaluation dataset for question answering over financial documents.

From the text you are given, write question and answer pairs. For each pair also return the context: the exact passage of the text that supports the answer.

Rules:
- Every answer must be supported by the text. Do not use outside knowledge and do not invent figures, dates or names.
- Prefer questions about concrete facts: amounts, growth rates, segments, risks, guidance, accounting policies.
- Questions must stand alone; do not write "according to the passage".
- Copy the context verbatim from the text.
- Return exactly the number of pairs requested when the text allows it, fewer when it does not.`

// DefaultUserTemplate is rendered with .Count and .Text for every chunk.
const DefaultUserTemplate = "Generate {{.Count}} questions for the following block of text: {{.Text}}"

type promptData struct {
	Count int
	Text  string
}

// parseUserTemplate compiles tmpl and renders it once so missing fields
// fail here rather than mid-run.
func parseUserTemplate(tmpl string) (*template.Template, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultUserTemplate
	}
	t, err := template.New("user").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, invalidInput("prompt template: %v", err)
	}
	if err := t.Execute(&strings.Builder{}, promptData{Count: 1, Text: "x"}); err != nil {
		return nil, invalidInput("prompt template: %v", err)
	}
	return t, nil
}

func renderUserMessage(t *template.Template, count int, text string) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, promptData{Count: count, Text: text}); err != nil {
		return "", invalidInput("prompt template: %v", err)
	}
	return b.String(), nil
}

// DatasetSchemaName is the structured-output name the model must use.
const DatasetSchemaName = "generate_dataset"

// DatasetSchema is the structured output requested from the model.
func DatasetSchema() *llm.Schema {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return &llm.Schema{
		Name:        DatasetSchemaName,
		Description: "Generates a list of dataset items. Each item has a question, an answer and the context it was drawn from.",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dataset_items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"question": str("The generated question."),
							"answer":   str("The generated answer."),
							"context":  str("The passage the question and answer are generated from."),
						},
						"required":             []string{"question", "answer", "context"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"dataset_items"},
			"additionalProperties": false,
		},
	}
}
