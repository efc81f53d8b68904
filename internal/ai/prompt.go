package ai

import (
	"fmt"

	"github.com/nhle/mail-assistant/internal/model"
)

const draftTemplate = `You are an AI email assistant. Generate a professional and helpful reply to the following email:

From: %s
Subject: %s

Email body:
%s

Generate a concise, professional reply that addresses the sender's needs or questions. Keep it friendly but professional.`

const classifyTemplate = `Analyze this email and determine if it's a "basic" email that can be safely auto-replied to without human review.

From: %s
Subject: %s
Body: %s

A basic email is one that:
- Is a simple inquiry or question with a straightforward answer
- Is a thank you or acknowledgment
- Is a simple confirmation or update
- Does NOT require complex decision-making
- Does NOT involve sensitive topics (legal, financial, personal issues)
- Does NOT contain urgent or critical information

Reply with ONLY "YES" if this is a basic email that can be auto-replied, or "NO" if it requires human review.`

func draftPrompt(msg model.Message) string {
	return fmt.Sprintf(draftTemplate, msg.Sender, msg.Subject, msg.Body)
}

func classifyPrompt(msg model.Message) string {
	return fmt.Sprintf(classifyTemplate, msg.Sender, msg.Subject, msg.Body)
}
