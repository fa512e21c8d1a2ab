package analysis

import "strings"

const systemPrompt = "You are an expert contract reviewer and legal analyst specializing in identifying risks, " +
	"unfair terms, and red flags in legal agreements. Use plain English and provide actionable suggestions."

const outputTemplate = `{
    "summary": "Brief 2-3 sentence summary of what this contract is about and its main purpose",
    "key_terms": {
        "parties": "Who are the parties involved",
        "effective_date": "When does it start (or 'Not specified')",
        "duration": "How long does it last",
        "payment_terms": "Payment structure and amounts (or 'Not specified')",
        "main_obligations": "Key responsibilities of each party",
        "termination": "How can it be ended"
    },
    "red_flags": [
        {
            "clause_text": "Exact text of the problematic clause (max 100 words)",
            "risk_type": "Type of risk (e.g., 'Hidden Penalty', 'Auto-Renewal Trap', 'One-Sided Obligation')",
            "explanation": "What this clause means in simple English (2-3 sentences)",
            "why_risky": "Why this is dangerous or unfair to the user (2-3 sentences)",
            "suggested_alternative": "Better, fairer wording for this clause",
            "severity": "high/medium/low"
        }
    ],
    "risk_score": {
        "financial_risk": "high/medium/low",
        "legal_exposure": "high/medium/low",
        "fairness": "high/medium/low",
        "missing_clauses": "high/medium/low",
        "overall_score": "high/medium/low"
    },
    "recommendations": [
        "Specific action the user should take (e.g., 'Negotiate a 30-day cancellation window')"
    ]
}`

// SystemPrompt is the fixed role instruction sent with every request.
func SystemPrompt() string { return systemPrompt }

// UserPrompt embeds the contract text and the answer template.
func UserPrompt(contractText string) string {
	var b strings.Builder
	b.WriteString("Analyze this contract and provide a comprehensive risk assessment.\n\n")
	b.WriteString("CONTRACT TEXT:\n")
	b.WriteString(contractText)
	b.WriteString("\n\nProvide your analysis in the following JSON format (must be valid JSON):\n\n")
	b.WriteString(outputTemplate)
	b.WriteString("\n\nCRITICAL: Return ONLY valid JSON. No markdown, no code blocks, no explanations outside the JSON.\n")
	return b.String()
}
