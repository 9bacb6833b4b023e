package classify

import (
	"fmt"
	"strings"

	"mailtriage/core/agent/llm"
	"mailtriage/core/domain"
)

const classificationSystemPrompt = `You are an expert email classifier. Analyze the email and provide accurate classification. Respond with JSON only.`

// buildClassificationPrompt embeds the truncated email and the category
// enum into the classification prompt.
func buildClassificationPrompt(email *domain.Email) string {
	categories := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		categories[i] = string(c)
	}

	return fmt.Sprintf(`Please analyze the following email and provide a classification in JSON format.

Email:
Subject: %s
From: %s

Body:
%s

Respond with this exact JSON structure:
{
  "category": "one of: %s",
  "subcategory": "specific subcategory if applicable, or empty",
  "confidence": 0.0-1.0,
  "reasoning": "brief explanation of the classification"
}

Consider the content, tone, and intent of the email when classifying.`,
		llm.TruncateSubject(email.Subject),
		email.Sender,
		llm.TruncateBody(email.Body),
		strings.Join(categories, ", "))
}
