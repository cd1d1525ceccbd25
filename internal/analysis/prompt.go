package analysis

const summaryPromptHeader = `Please analyze this medical report and provide a comprehensive summary. Extract key findings, diagnoses, recommendations, test results, and any concerning areas. Format the response clearly and indicate this is AI analysis that should be verified by medical professionals.

Medical Report Content:
`

// SummaryPrompt embeds the extracted document text in the fixed summary prompt.
func SummaryPrompt(documentText string) string {
	return summaryPromptHeader + documentText
}
