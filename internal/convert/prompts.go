package convert

import "fmt"

// visionSystemPrompt instructs vision models converting a rendered
// page image to Markdown.
const visionSystemPrompt = "You are an expert document OCR and conversion assistant with vision capabilities. " +
	"Your task is to analyze the provided PDF page image and convert ALL content into clean, " +
	"well-structured Markdown format.\n\n" +
	"IMPORTANT GUIDELINES:\n" +
	"1. **Tables**: Convert to standard Markdown table syntax with proper alignment. " +
	"Preserve all columns, headers, and cell content.\n" +
	"2. **Code Blocks**: Identify code snippets and wrap them in proper fenced code blocks " +
	"with language identifiers (e.g., ```python, ```javascript).\n" +
	"3. **Mathematical Formulas**: Convert equations to LaTeX syntax using $ for inline " +
	"and $$ for display formulas.\n" +
	"4. **Structure**: Preserve document hierarchy using headers (# ## ###), lists (- * 1.), " +
	"bold (**text**), and italic (*text*).\n" +
	"5. **Images/Diagrams**: Describe visual elements that cannot be represented in text, " +
	"using format: ![Description of image/diagram]()\n" +
	"6. **Layout**: Maintain the logical reading order and flow of the content.\n" +
	"7. **Continuity**: Ensure content flows naturally from the previous page context.\n\n" +
	"CRITICAL: Extract ALL visible text and content from the image. " +
	"Do not summarize or skip any content. " +
	"Return ONLY the Markdown content - no conversational text, no explanations."

// textSystemPrompt instructs text models reformatting extracted page
// text. A model judging the input to be garbage may return an empty
// string, which the orchestrator treats as no fragment.
func textSystemPrompt(pageNum int) string {
	return fmt.Sprintf("You are an expert OCR and document conversion assistant. "+
		"Your task is to convert the following text extracted from a PDF page into clean, well-structured Markdown. "+
		"Maintain the following:\n"+
		"1. Tables: Use standard Markdown table syntax. Preserve columns and headers.\n"+
		"2. Code Blocks: Identify code and use proper syntax highlighting (e.g., ```python).\n"+
		"3. Math: Use LaTeX for equations if detected ($ for inline, $$ for display).\n"+
		"4. Structure: Preserve headers (# ##), lists (- 1.), and bold/italic text.\n"+
		"5. Continuity: Ensure the flow makes sense for page %d. "+
		"Use the provided context from the previous page to maintain consistency in formatting and sentence flow."+
		"\n\nIf the text looks like garbage or is empty, return an empty string. "+
		"Do not add any conversational text, only return the Markdown content.", pageNum)
}

func continuityMessage(previousContext string, pageNum int) string {
	return fmt.Sprintf("Context from previous page (for continuity):\n---\n%s\n---\n\n"+
		"Now process the current page (page %d), ensuring the content flows naturally from the context above.",
		previousContext, pageNum)
}

func visionUserPrompt(pageNum int) string {
	return fmt.Sprintf("Convert this PDF page (page %d) to Markdown format. "+
		"Extract all text, tables, code, formulas, and describe any images or diagrams:", pageNum)
}
