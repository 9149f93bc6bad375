package llm

import (
	"fmt"
	"strings"

	"github.com/convoflow/workflow-engine/internal/store"
)

// BusinessProfile is the tenant configuration consulted when building the
// fallback chatbot's system prompt (spec §4.7, §11).
type BusinessProfile struct {
	Name               string
	Industry           string
	Description        string
	Services           string
	Tone               string
	Hours              string
	Location           string
	FAQ                string
	CustomInstructions string
	LearnedInsights    string
}

var industryTemplates = []struct {
	Key      string
	Template string
}{
	{"real_estate", "\nINDUSTRY: REAL ESTATE\n- Show available units.\n- Ask for budget, location, rooms.\n- Offer inspection.\n"},
	{"healthcare", "\nINDUSTRY: HEALTHCARE / CLINIC\n- Show service availability.\n- Offer appointment slots.\n- Collect patient details.\n"},
	{"restaurant", "\nINDUSTRY: RESTAURANT\n- Show menu if asked.\n- Confirm delivery areas.\n- Collect order & customer info.\n"},
	{"beauty", "\nINDUSTRY: BEAUTY SALON / SPA\n- Share prices.\n- Ask preferred style & date.\n- Book appointment.\n"},
	{"retail", "\nINDUSTRY: SUPERMARKET / RETAIL\n- Confirm stock availability.\n- Reserve items.\n- Collect customer info.\n"},
	{"logistics", "\nINDUSTRY: LOGISTICS / DELIVERY\n- Ask weight, pickup, destination.\n- Generate price estimate.\n- Book delivery.\n"},
	{"education", "\nINDUSTRY: SCHOOL / TRAINING\n- Share course details.\n- Ask preferred session.\n- Collect name & contact.\n"},
	{"consulting", "\nINDUSTRY: CONSULTING / SERVICES\n- Explain services.\n- Book consultation.\n"},
	{"ngo", "\nINDUSTRY: NGO / COMMUNITY\n- Explain mission.\n- Accept donations or volunteer signups.\n"},
}

const safetyNotice = "Never provide medical, legal, or financial advice beyond general information. Refuse requests that are unsafe, illegal, or violate platform policy."

// BuildSystemPrompt assembles the fallback chatbot's system prompt from a
// tenant's business profile and knowledge base documents. Ported from
// original_source/services/prompt_service.py's build_system_prompt;
// section ordering and wording are preserved deliberately since the
// action-tag protocol at the end is what actiontags.go parses back out of
// the model's response.
func BuildSystemPrompt(profile BusinessProfile, docs []store.KnowledgeDoc) string {
	name := profile.Name
	if name == "" {
		name = "this business"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the AI assistant for %s. Your primary goal is to represent them professionally and help customers with their specific inquiries.\n", name)

	if profile.Industry != "" {
		lowerIndustry := strings.ToLower(profile.Industry)
		fmt.Fprintf(&b, "\nIndustry: %s.\n", profile.Industry)

		matched := false
		for _, t := range industryTemplates {
			if strings.Contains(lowerIndustry, t.Key) {
				b.WriteString(t.Template)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteString("\nINDUSTRY: GENERAL BUSINESS\n- Explain services/products.\n- Answer inquiries professionally.\n- Collect customer info if interested.\n")
		}
	} else {
		b.WriteString("\nINDUSTRY: GENERAL\n- Provide helpful information about products/services.\n- Answer questions based on the details provided below.\n")
	}

	if profile.Description != "" {
		fmt.Fprintf(&b, "\nAbout %s: %s.\n", name, profile.Description)
	}
	if profile.Services != "" {
		fmt.Fprintf(&b, "\nServices Offered by %s:\n%s\n", name, profile.Services)
	}
	if profile.Tone != "" {
		fmt.Fprintf(&b, "\nCommunication Tone: Use a %s tone in all messages.\n", profile.Tone)
	}
	if profile.Hours != "" {
		fmt.Fprintf(&b, "\nOperating Hours: %s\n", profile.Hours)
	}
	if profile.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", profile.Location)
	}
	if profile.FAQ != "" {
		fmt.Fprintf(&b, "\nFrequently Asked Questions (FAQ):\n%s\n", profile.FAQ)
	}
	if profile.CustomInstructions != "" {
		fmt.Fprintf(&b, "\nSTRICT CUSTOM RULES:\n%s\n", profile.CustomInstructions)
	}
	if profile.LearnedInsights != "" {
		fmt.Fprintf(&b, "\nLEARNED KNOWLEDGE FROM PAST CHATS:\n%s\n", profile.LearnedInsights)
	}

	if len(docs) > 0 {
		b.WriteString("\n*** BUSINESS KNOWLEDGE BASE ***\n")
		for _, doc := range docs {
			content := doc.Content
			if len(content) > 3000 {
				content = content[:3000]
			}
			title := doc.Title
			if title == "" {
				title = "Document"
			}
			fmt.Fprintf(&b, "SOURCE: %s\n%s\n\n", title, content)
		}
	}

	b.WriteString(`
*** UNIVERSAL RESPONSE STYLE ***
- Friendly, professional, and concise.
- Simple explanations; do not overwhelm.
- STRICT RULE: Always end with a follow-up qualification question to move the conversation forward.
- Only provide info that is explicitly in the profile or FAQs. If unsure, ask for clarification.

*** UNIVERSAL LEAD ENGINE ***
1. Understand the Request -> Answer constraints/availability.
2. Qualify -> Ask for specifics (date, size, style, location).
3. Convert -> Propose the booking/order/visit.
4. Capture -> Ask for Name and Contact to confirm.
`)

	fmt.Fprintf(&b, "\n%s\n", safetyNotice)

	b.WriteString(`
*** ACTION PROTOCOLS (CRITICAL) ***
You have the ability to perform actions. Use the following tags at the END of your response if the condition is met.

1. LEAD CAPTURE (MAXIMUM PRIORITY):
   - CRITICAL: if the user provides a name, phone number, or email, you MUST capture it immediately.
   - Do NOT wait for all details. Capture whatever is provided.
   - Format: [ACTION: LEAD_CAPTURE | {"name": "Name", "email": "email", "phone": "phone", "notes": "extra context"}]

2. SCHEDULING (HIGH CONVERSION):
   - If the user explicitly wants to book an appointment, schedule a call, visit, or asks about availability, append: [ACTION: SCHEDULE]

3. REQUIRED ANALYSIS (MANDATORY):
   - You MUST classify the user's message at the very end of every response.
   - Use one of: booking_request, enquiry, pricing, support, greeting, features, integration, complaint, feedback, human.
   - Format: [ANALYSIS: <Intent> | <Sentiment>]

*** IMPORTANT ***
- Output the LEAD_CAPTURE tag BEFORE the ANALYSIS tag.
- Ensure the ANALYSIS tag is on its own line at the very end.
`)

	b.WriteString("\nAlways be helpful, polite, and professional.")

	return b.String()
}
