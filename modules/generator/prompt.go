package generator

import "strings"

const promptRules = `You are an editing assistant for Markdown templates.

Rules:
1. Change ONLY the parts the instruction asks for.
2. Keep every placeholder of the form {{name}} exactly as written (for example {{date}}, {{school}}).
3. Never replace a {{placeholder}} the instruction does not target.
4. Do not invent or add any content that was not requested.
5. Keep the structure and formatting of the template.`

// BuildPrompt renders the rewrite prompt for document and instruction.
func BuildPrompt(document, instruction string) string {
	var b strings.Builder
	b.WriteString(promptRules)
	b.WriteString("\n\nCurrent template:\n")
	b.WriteString(document)
	b.WriteString("\n\nInstruction:\n")
	b.WriteString(instruction)
	b.WriteString("\n\nEdited template:\n")
	b.WriteString("Output the complete template with only the requested changes applied. ")
	b.WriteString("Leave everything else exactly as it was and do not add any commentary.")
	return b.String()
}
