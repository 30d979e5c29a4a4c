package template

import "github.com/guided-ai/interview-platform/internal/model"

// SeedTemplates returns the built-in templates loaded when no template
// directory is configured or the directory holds none.
func SeedTemplates() []model.Template {
	return []model.Template{
		{
			Name:        "Business Email",
			Description: "Draft a professional business email",
			Category:    "writing",
			SystemPrompt: "You are a professional business writer. Draft a clear, courteous email " +
				"to {recipient} with the subject \"{subject}\". The email should cover: {content}. " +
				"Keep the tone professional and the message concise.",
			Variables: []model.Variable{
				{
					Name:     "recipient",
					Label:    "Who is the email addressed to?",
					Type:     model.VariableTypeText,
					Required: true,
				},
				{
					Name:     "subject",
					Label:    "What is the subject line?",
					Type:     model.VariableTypeText,
					Required: true,
				},
				{
					Name:     "content",
					Label:    "What should the email say?",
					Type:     model.VariableTypeTextArea,
					Required: true,
				},
			},
		},
		{
			Name:        "Code Review",
			Description: "Review a piece of code with a chosen focus",
			Category:    "engineering",
			SystemPrompt: "You are an experienced {language} engineer performing a code review. " +
				"Focus primarily on {focus}. Point out concrete problems, suggest fixes, and " +
				"call out anything done well.",
			Variables: []model.Variable{
				{
					Name:     "language",
					Label:    "What language is the code written in?",
					Type:     model.VariableTypeText,
					Required: true,
				},
				{
					Name:     "focus",
					Label:    "What should the review focus on?",
					Type:     model.VariableTypeSelect,
					Options:  []string{"correctness", "performance", "readability", "security"},
					Required: false,
					Default:  "correctness",
				},
			},
		},
	}
}
