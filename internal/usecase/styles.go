package usecase

import (
	"strings"

	"verba/internal/domain"
)

// styleInstructions maps each built-in style to its generation instruction.
// The table is closed; anything else falls through to defaultInstruction.
var styleInstructions = map[domain.StyleTask]string{
	domain.StyleFormat:       "IMPORTANT: Create a verbatim transcript of this audio with minimal edits. Only fix grammar, punctuation, and capitalization. Maintain the exact wording and speaking style of the original. Create proper paragraphs where natural pauses occur. DO NOT summarize or change any content. DO NOT add any interpretations. The result should look like a professional transcript that preserves the speaker's exact words and style:",
	domain.StyleSummarize:    "IMPORTANT: Create a concise executive summary (30-40% of original length) that captures ONLY the most essential points. Start with a one-sentence overview. Then include 3-5 key takeaways as short paragraphs. Focus on conclusions and main arguments, NOT supporting details. The summary should be significantly shorter than the original while capturing its essence. Use formal, professional language:",
	domain.StyleEmail:        "IMPORTANT: Transform this transcription into a formal business email with these EXACT components: 1) Professional subject line, 2) Formal greeting with recipient name if mentioned, 3) Brief introduction paragraph, 4) 2-3 body paragraphs with the main content organized logically, 5) Clear closing paragraph with any requested actions, 6) Professional sign-off and signature with sender's name and position if mentioned. Use business email conventions and formal language throughout:",
	domain.StyleMeetingNotes: "IMPORTANT: Convert this transcription into structured meeting notes with EXACTLY this format: 1) \"MEETING SUMMARY\" section with date, time, and objective if mentioned, 2) \"PARTICIPANTS\" section listing all mentioned attendees, 3) \"DISCUSSION TOPICS\" section with H3 headings for each major topic and bullet points underneath, 4) \"ACTION ITEMS\" section with assigned tasks, owners, and deadlines in a table format, 5) \"NEXT STEPS\" section with upcoming meetings or follow-ups. Use professional, concise language throughout:",
	domain.StyleBulletPoints: "IMPORTANT: Transform this transcription into a hierarchical bullet point structure with these EXACT elements: 1) Main topics as level 1 bullets with emoji icons, 2) Subtopics as level 2 bullets (indented with dashes), 3) Key details as level 3 bullets (further indented with asterisks). Ensure bullets are concise (max 15 words each). Group related points together. Use parallel grammar structure for all bullets at the same level. The result should be a visually organized, scannable document:",
	domain.StyleActionItems:  "IMPORTANT: Extract ONLY action items, tasks, and commitments from this transcription. Format as a numbered task list with EXACTLY these components for each item: 1) Task description starting with an action verb, 2) Assignee in [brackets], 3) Deadline in (parentheses) if mentioned, 4) Priority marked as [HIGH], [MEDIUM], or [LOW] based on urgency cues. Include ONLY actionable items, not general discussion points. The result should look like a project management task list:",
	domain.StyleQAFormat:     "IMPORTANT: Restructure this transcription into a formal Q&A document with EXACTLY this format: 1) Each question prefixed with \"Q:\" in bold, 2) Each answer prefixed with \"A:\" in regular text, 3) Questions and answers grouped by topic with topic headings, 4) Similar questions consolidated, 5) Answers expanded to provide complete information. Ensure technical accuracy and professional language. The result should look like an official FAQ or interview transcript:",
	domain.StyleNote:         "IMPORTANT: Transform this transcription into a concise, well-structured note. Format with clear headings, short paragraphs, and emphasis on key points. Maintain the essential information while making it more readable and organized. The result should be a clean, professional note that captures the main ideas:",
}

const defaultInstruction = "Process the following transcription according to standard formatting rules:"

// styleAliases accepts the legacy names some callers still send.
var styleAliases = map[domain.StyleTask]domain.StyleTask{
	"transcript": domain.StyleFormat,
	"summary":    domain.StyleSummarize,
	"bullets":    domain.StyleBulletPoints,
}

// NormalizeStyle resolves aliases and reports whether the task is one the
// instruction table knows. Custom styles are always valid when they carry a
// non-empty instruction.
func NormalizeStyle(style domain.Style) (domain.Style, bool) {
	if alias, ok := styleAliases[style.Task]; ok {
		style.Task = alias
	}
	if style.Task == domain.StyleCustom {
		style.Instruction = strings.TrimSpace(style.Instruction)
		return style, style.Instruction != ""
	}
	style.Instruction = ""
	_, known := styleInstructions[style.Task]
	return style, known
}

// BuildPrompt renders the generation prompt for a style and transcript.
func BuildPrompt(style domain.Style, text string) string {
	if style.Task == domain.StyleCustom {
		if instruction := strings.TrimSpace(style.Instruction); instruction != "" {
			return instruction + ":\n\n" + text
		}
	}
	task := style.Task
	if alias, ok := styleAliases[task]; ok {
		task = alias
	}
	if instruction, ok := styleInstructions[task]; ok {
		return instruction + "\n\n" + text
	}
	return defaultInstruction + "\n\n" + text
}
